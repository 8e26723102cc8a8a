package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"hddfand/internal/daemonctl"
	"hddfand/internal/journal"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatus(w io.Writer, snapshot *daemonctl.Snapshot, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(w, line)
	}
	for _, line := range instanceLines(snapshot, colorize) {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(w, line)
	}
	for _, check := range snapshot.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(w, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(w)

	for _, line := range renderSectionHeader("Recent Actuations", colorize) {
		fmt.Fprintln(w, line)
	}
	if len(snapshot.Recent) == 0 {
		fmt.Fprintln(w, renderStatusLine("Journal", statusInfo, snapshot.JournalDetail, colorize))
		return
	}
	fmt.Fprintln(w, renderActuationTable(snapshot.Recent))
}

func instanceLines(snapshot *daemonctl.Snapshot, colorize bool) []string {
	inst := snapshot.Instance
	lines := make([]string, 0, 4)
	switch {
	case inst.Alive:
		lines = append(lines, renderStatusLine("hddfand", statusOK, fmt.Sprintf("Running (pid %d)", inst.PID), colorize))
		if name := strings.TrimSpace(inst.Process.Name); name != "" {
			lines = append(lines, renderStatusLine("Process", statusInfo, name, colorize))
		}
		if !inst.Process.Started.IsZero() {
			started := inst.Process.Started.Local().Format(time.DateTime)
			uptime := time.Since(inst.Process.Started).Truncate(time.Second)
			lines = append(lines, renderStatusLine("Started", statusInfo, fmt.Sprintf("%s (up %s)", started, uptime), colorize))
		}
	case inst.Present:
		lines = append(lines, renderStatusLine("hddfand", statusWarn,
			fmt.Sprintf("Not running (stale lock names pid %d)", inst.PID), colorize))
	default:
		lines = append(lines, renderStatusLine("hddfand", statusWarn, "Not running (run `hddfand start`)", colorize))
	}
	lines = append(lines, renderStatusLine("Lock", statusInfo, inst.LockPath, colorize))
	return lines
}

func renderActuationTable(entries []journal.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Time", "Level", "Decision", "PID", "Run"})
	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.Time.Local().Format(time.DateTime),
			strconv.Itoa(e.Level),
			e.Decision,
			strconv.Itoa(e.PID),
			shortRunID(e.RunID),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
