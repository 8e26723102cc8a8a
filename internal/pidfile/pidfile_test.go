package pidfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"hddfand/internal/faults"
)

func TestReadAbsent(t *testing.T) {
	pid, present, err := Read(filepath.Join(t.TempDir(), "missing.lock"))
	if err != nil || present || pid != 0 {
		t.Fatalf("Read = %d, %v, %v; want 0, false, nil", pid, present, err)
	}
}

func TestReadContents(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"1234\n", 1234},
		{"  42  ", 42},
		{"", 0},
		{"not-a-pid\n", 0},
		{"-5\n", 0},
	}
	for _, tc := range tests {
		path := filepath.Join(t.TempDir(), "hddfand.lock")
		if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
			t.Fatal(err)
		}
		pid, present, err := Read(path)
		if err != nil || !present {
			t.Fatalf("Read(%q) err=%v present=%v", tc.content, err, present)
		}
		if pid != tc.want {
			t.Fatalf("Read(%q) = %d, want %d", tc.content, pid, tc.want)
		}
	}
}

func TestReadUnexpectedFailure(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Read(dir)
	if !errors.Is(err, faults.ErrLockArtifact) {
		t.Fatalf("expected ErrLockArtifact reading a directory, got %v", err)
	}
}

func TestAcquireWritesPIDAndReleaseRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "hddfand.lock")
	pid := os.Getpid()

	h, err := Acquire(path, pid)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != strconv.Itoa(pid)+"\n" {
		t.Fatalf("artifact content = %q", data)
	}
	if h.Path() != path || h.PID() != pid {
		t.Fatalf("handle = %s %d", h.Path(), h.PID())
	}

	if err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected artifact removed, stat err = %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestAcquireWhileHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hddfand.lock")
	h, err := Acquire(path, os.Getpid())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()

	_, err = Acquire(path, os.Getpid()+1)
	if !errors.Is(err, faults.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	pid, _, _ := Read(path)
	if pid != os.Getpid() {
		t.Fatalf("artifact overwritten: %d", pid)
	}
}

func TestAcquireOverwritesStaleArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hddfand.lock")
	if err := os.WriteFile(path, []byte("999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := Acquire(path, 77)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer h.Release()
	if pid, _, _ := Read(path); pid != 77 {
		t.Fatalf("pid = %d, want 77", pid)
	}
}

func TestReleaseKeepsForeignArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hddfand.lock")
	h, err := Acquire(path, 10)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := os.WriteFile(path, []byte("20\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if pid, present, _ := Read(path); !present || pid != 20 {
		t.Fatalf("foreign artifact removed: pid=%d present=%v", pid, present)
	}
}

func TestRemoveIf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hddfand.lock")
	if err := os.WriteFile(path, []byte("55\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	removed, err := RemoveIf(path, 56)
	if err != nil || removed {
		t.Fatalf("RemoveIf(other pid) = %v, %v", removed, err)
	}
	removed, err = RemoveIf(path, 55)
	if err != nil || !removed {
		t.Fatalf("RemoveIf(owner) = %v, %v", removed, err)
	}
	removed, err = RemoveIf(path, 55)
	if err != nil || removed {
		t.Fatalf("RemoveIf(absent) = %v, %v", removed, err)
	}
}

func TestDefaultPath(t *testing.T) {
	if got := DefaultPath("hddfand"); got != "/run/lock/hddfand.lock" {
		t.Fatalf("DefaultPath = %q", got)
	}
}
