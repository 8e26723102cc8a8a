package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckWritableParent verifies that the file at path can be created: its
// directory either exists with write access or can be created under the
// nearest existing ancestor.
func CheckWritableParent(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	dir := filepath.Dir(path)
	ancestor := dir
	for {
		_, err := os.Stat(ancestor)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", ancestor, err)}
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			break
		}
		ancestor = parent
	}
	if ancestor == dir {
		return CheckDirectoryAccess(name, dir)
	}
	result := CheckDirectoryAccess(name, ancestor)
	if !result.Passed {
		return result
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", dir)}
}

// CheckDevice verifies that a configured drive node exists.
func CheckDevice(path string) Result {
	name := "Drive " + path
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: "not present"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("stat: %v", err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: "is a directory"}
	}
	return Result{Name: name, Passed: true, Detail: "present"}
}
