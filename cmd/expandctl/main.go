// expandctl is the control CLI for the expandd daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"expandd/internal/config"
	"expandd/internal/ipc"
)

var (
	socketPath = flag.String("socket", "", "path to daemon socket")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cmd := flag.Arg(0)

	switch cmd {
	case "status":
		cmdStatus()
	case "reload":
		cmdReload()
	case "pause":
		cmdPause()
	case "resume":
		cmdResume()
	case "triggers":
		cmdTriggers()
	case "stats":
		cmdStats()
	case "shutdown":
		cmdShutdown()
	case "ping":
		cmdPing()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `expandctl - Control utility for expandd

Usage: expandctl [options] <command>

Commands:
  status      Show daemon status
  reload      Reload match files from disk
  pause       Suspend expansion matching
  resume      Resume expansion matching
  triggers    List loaded triggers
  stats       Show expansion history statistics
  shutdown    Stop the daemon
  ping        Check daemon liveness
  help        Show this help message

Options:
  -socket <path>  Daemon socket (default: $XDG_RUNTIME_DIR/expandd.sock)`)
}

func connect() *ipc.Client {
	socket := *socketPath
	if socket == "" {
		socket = config.DefaultSocketPath()
	}

	client := ipc.NewClient(ipc.DefaultClientConfig(socket))
	if err := client.Connect(); err != nil {
		if err == ipc.ErrDaemonNotRunning {
			fmt.Fprintln(os.Stderr, "expandd is not running")
		} else {
			fmt.Fprintf(os.Stderr, "Error connecting to daemon: %v\n", err)
		}
		os.Exit(1)
	}
	return client
}

func cmdStatus() {
	client := connect()
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	state := "matching"
	if status.Paused {
		state = "PAUSED"
	}

	fmt.Println("=== expandd Status ===")
	fmt.Printf("State:      %s\n", state)
	fmt.Printf("Version:    %s\n", status.Version)
	fmt.Printf("Started:    %s\n", status.StartedAt.Format(time.RFC3339))
	fmt.Printf("Uptime:     %s\n", (time.Duration(status.UptimeSec) * time.Second).String())
	fmt.Printf("Triggers:   %d\n", status.Triggers)
	fmt.Printf("Backend:    %s\n", status.Backend)
	fmt.Printf("Events:     %d\n", status.Events)
	fmt.Printf("Expansions: %d\n", status.Expansions)

	if len(status.MatchDirs) > 0 {
		fmt.Println("\nMatch directories:")
		for _, d := range status.MatchDirs {
			fmt.Printf("  - %s\n", d)
		}
	}
	if len(status.Keyboards) > 0 {
		fmt.Println("\nKeyboards:")
		for _, k := range status.Keyboards {
			fmt.Printf("  - %s\n", k)
		}
	}
}

func cmdReload() {
	client := connect()
	defer client.Close()

	resp, err := client.Reload()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !resp.Success {
		fmt.Fprintf(os.Stderr, "Reload failed: %s\n", resp.Error)
		os.Exit(1)
	}
	fmt.Printf("Reloaded: %d trigger(s)\n", resp.Triggers)
}

func cmdPause() {
	client := connect()
	defer client.Close()

	if _, err := client.Pause(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Matching paused. Run 'expandctl resume' to re-enable.")
}

func cmdResume() {
	client := connect()
	defer client.Close()

	if _, err := client.Resume(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Matching resumed.")
}

func cmdTriggers() {
	client := connect()
	defer client.Close()

	resp, err := client.Triggers()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.Triggers) == 0 {
		fmt.Println("No triggers loaded.")
		return
	}

	fmt.Printf("%d trigger(s):\n\n", len(resp.Triggers))
	for _, t := range resp.Triggers {
		fmt.Printf("  %-20s %s\n", t.Trigger, preview(t.Replace, 50))
	}
}

func cmdStats() {
	client := connect()
	defer client.Close()

	stats, err := client.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Expansion History ===")
	fmt.Printf("Total expansions: %d\n", stats.TotalExpansions)
	fmt.Printf("Variable failures: %d\n", stats.TotalFailures)
	if !stats.FirstExpansion.IsZero() {
		fmt.Printf("First: %s\n", stats.FirstExpansion.Format(time.RFC3339))
		fmt.Printf("Last:  %s\n", stats.LastExpansion.Format(time.RFC3339))
	}

	if len(stats.TopTriggers) > 0 {
		fmt.Println("\nMost used:")
		for _, tc := range stats.TopTriggers {
			fmt.Printf("  %-20s %d\n", tc.Trigger, tc.Count)
		}
	}
}

func cmdShutdown() {
	client := connect()
	defer client.Close()

	if err := client.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Shutdown requested.")
}

func cmdPing() {
	client := connect()
	defer client.Close()

	start := time.Now()
	if err := client.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("pong (%s)\n", time.Since(start).Round(time.Microsecond))
}

func preview(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
