package hotplug

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestNewWatcher(t *testing.T) {
	t.Run("no drives returns nil", func(t *testing.T) {
		if w := New([]string{" ", ""}, nil); w != nil {
			t.Fatal("expected nil watcher")
		}
	})

	t.Run("resolves symlinked drive names", func(t *testing.T) {
		dir := t.TempDir()
		target := filepath.Join(dir, "sdz")
		if err := os.WriteFile(target, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(dir, "ata-DISK")
		if err := os.Symlink(target, link); err != nil {
			t.Fatal(err)
		}
		w := New([]string{link}, nil)
		if w == nil {
			t.Fatal("expected watcher")
		}
		resolved, _ := filepath.EvalSymlinks(link)
		if w.devices[resolved] != link {
			t.Fatalf("devices = %v", w.devices)
		}
	})
}

func TestNilWatcherIsSafe(t *testing.T) {
	var w *Watcher
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil watcher: %v", err)
	}
	w.Stop()
	if w.Running() {
		t.Fatal("nil watcher reports running")
	}
}

func TestStopUnstartedWatcher(t *testing.T) {
	w := New([]string{"/dev/sda"}, nil)
	w.Stop()
	w.Stop()
	if w.Running() {
		t.Fatal("expected watcher to be stopped")
	}
}

func TestBuildMatcher(t *testing.T) {
	matcher := buildMatcher()
	disk := map[string]string{"SUBSYSTEM": "block", "DEVTYPE": "disk"}

	for _, action := range []netlink.KObjAction{netlink.ADD, netlink.REMOVE} {
		if !matcher.Evaluate(netlink.UEvent{Action: action, Env: disk}) {
			t.Errorf("expected matcher to accept %s", action)
		}
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.CHANGE, Env: disk}) {
		t.Error("expected matcher to reject change events")
	}
	partition := map[string]string{"SUBSYSTEM": "block", "DEVTYPE": "partition"}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.ADD, Env: partition}) {
		t.Error("expected matcher to reject partitions")
	}
}

func TestHandleEvent(t *testing.T) {
	var buf bytes.Buffer
	w := New([]string{"/dev/sda"}, bufferLogger(&buf))

	if !w.handleEvent(netlink.UEvent{Action: netlink.REMOVE, Env: map[string]string{"DEVNAME": "sda"}}) {
		t.Fatal("expected removal of monitored drive to be handled")
	}
	if !strings.Contains(buf.String(), "monitored drive removed") || !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("expected warning, got %s", buf.String())
	}

	buf.Reset()
	if !w.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVPATH": "/devices/pci0000:00/ata1/host0/block/sda"}}) {
		t.Fatal("expected arrival via DEVPATH to be handled")
	}
	if !strings.Contains(buf.String(), "monitored drive attached") {
		t.Fatalf("expected info line, got %s", buf.String())
	}

	if w.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"DEVNAME": "/dev/sdq"}}) {
		t.Fatal("unmonitored device should be ignored")
	}
	if w.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{}}) {
		t.Fatal("event without device should be ignored")
	}
}
