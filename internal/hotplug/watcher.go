// Package hotplug watches udev netlink events for the monitored drives and
// logs their arrival and removal. It never samples or actuates.
package hotplug

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"hddfand/internal/logging"
)

// Watcher listens for block device add/remove events.
type Watcher struct {
	logger  *slog.Logger
	devices map[string]string

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// New creates a watcher for drives. It returns nil when there is nothing to
// watch; all methods are safe on a nil watcher.
func New(drives []string, logger *slog.Logger) *Watcher {
	devices := make(map[string]string, len(drives)*2)
	for _, drive := range drives {
		drive = strings.TrimSpace(drive)
		if drive == "" {
			continue
		}
		devices[drive] = drive
		// by-id and by-path names resolve to the kernel node reported by udev.
		if resolved, err := filepath.EvalSymlinks(drive); err == nil && resolved != drive {
			devices[resolved] = drive
		}
	}
	if len(devices) == 0 {
		return nil
	}
	return &Watcher{
		logger:  logging.NewComponentLogger(logger, "hotplug"),
		devices: devices,
	}
}

// Start connects to the udev netlink socket. A connection failure is logged
// and otherwise ignored.
func (w *Watcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(w.logger, "failed to connect to netlink socket; drive hotplug events will not be logged", "netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "drive removal is only noticed by the next failed sample"),
		)
		return nil
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	quit := w.quit
	go w.monitorLoop(ctx, conn, quit)

	w.logger.Info("hotplug watcher started",
		logging.String(logging.FieldEventType, "hotplug_watcher_started"),
		logging.Int("devices", len(w.devices)),
	)
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	if w.quit != nil {
		close(w.quit)
		w.quit = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false

	w.logger.Info("hotplug watcher stopped",
		logging.String(logging.FieldEventType, "hotplug_watcher_stopped"),
	)
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handleEvent(uevent)
		case err := <-errs:
			w.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "drive hotplug logging may be affected"),
			)
		}
	}
}

// buildMatcher matches whole-disk block devices being added or removed.
func buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
			"DEVTYPE":   "disk",
		},
	})
	return rules
}

// handleEvent logs a matched uevent and reports whether it concerned a
// monitored drive.
func (w *Watcher) handleEvent(uevent netlink.UEvent) bool {
	devname := deviceName(uevent)
	if devname == "" {
		return false
	}
	configured, ok := w.devices[devname]
	if !ok {
		w.logger.Debug("ignoring event for unmonitored device",
			logging.String(logging.FieldDevice, devname),
			logging.String("action", string(uevent.Action)),
		)
		return false
	}

	switch uevent.Action {
	case netlink.REMOVE:
		logging.WarnWithContext(w.logger, "monitored drive removed", "drive_removed",
			logging.String(logging.FieldDevice, configured),
			logging.String("kernel_device", devname),
			logging.String(logging.FieldErrorHint, "reconnect the drive or remove it from disks"),
			logging.String(logging.FieldImpact, "the next temperature sample will likely fail"),
		)
	case netlink.ADD:
		w.logger.Info("monitored drive attached",
			logging.String(logging.FieldDevice, configured),
			logging.String("kernel_device", devname),
			logging.String(logging.FieldEventType, "drive_attached"),
		)
	default:
		return false
	}
	return true
}

// deviceName gets the device node from a uevent.
func deviceName(uevent netlink.UEvent) string {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		devpath := uevent.Env["DEVPATH"]
		if devpath == "" {
			return ""
		}
		parts := strings.Split(devpath, "/")
		devname = parts[len(parts)-1]
	}
	if !strings.HasPrefix(devname, "/") {
		devname = "/dev/" + devname
	}
	return devname
}
