// expandd - Text expansion daemon for Linux
//
//	expandd run              Run the expansion daemon
//	expandd status           Show daemon status
//	expandd triggers         List loaded triggers
//	expandd expand <trigger> Render one trigger without injecting
//	expandd version          Show version
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"expandd/internal/config"
	"expandd/internal/ipc"
	"expandd/internal/logging"
	"expandd/internal/matchfile"
	"expandd/internal/template"
	"expandd/internal/vars"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "run":
		cmdRun()
	case "status":
		cmdStatus()
	case "triggers":
		cmdTriggers()
	case "expand":
		cmdExpand()
	case "version", "-v", "--version":
		fmt.Println("expandd " + version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`expandd - Text expansion daemon

USAGE:
    expandd <command> [options]

COMMANDS:
    run                 Run the expansion daemon
    status              Show daemon status
    triggers            List loaded triggers
    expand <trigger>    Render one trigger and print the result
    version             Show version
    help                Show this help message

SETUP:
    1. Put espanso-style match files under ~/.config/expandd/match/
    2. Run 'expandd triggers' to check what loaded
    3. Run 'expandd run' (needs read access to /dev/input)

Reading /dev/input requires membership in the 'input' group or root.
When run via sudo, injected text is typed as the invoking desktop user.`)
}

// loadDaemonConfig loads the configuration from the given path, falling
// back to the default location.
func loadDaemonConfig(path string) *config.Config {
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func matchDirs(cfg *config.Config) []string {
	if len(cfg.Match.Dirs) > 0 {
		return cfg.Match.Dirs
	}
	return []string{matchfile.DefaultDir()}
}

func newLoader(cfg *config.Config) *matchfile.Loader {
	loader, err := matchfile.New(matchDirs(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing match loader: %v\n", err)
		os.Exit(1)
	}
	loader.Strict = cfg.Match.Strict
	return loader
}

func cmdStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(os.Args[2:])

	cfg := loadDaemonConfig(*configPath)

	socket := cfg.IPC.Socket
	if socket == "" {
		socket = config.DefaultSocketPath()
	}

	client := ipc.NewClient(ipc.DefaultClientConfig(socket))
	if err := client.Connect(); err != nil {
		fmt.Println("Daemon: NOT RUNNING")
		fmt.Printf("Socket: %s\n", socket)
		return
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying daemon: %v\n", err)
		os.Exit(1)
	}

	state := "matching"
	if status.Paused {
		state = "PAUSED"
	}

	fmt.Printf("Daemon:     RUNNING (%s)\n", state)
	fmt.Printf("Version:    %s\n", status.Version)
	fmt.Printf("Uptime:     %s\n", (time.Duration(status.UptimeSec) * time.Second).String())
	fmt.Printf("Triggers:   %d\n", status.Triggers)
	fmt.Printf("Backend:    %s\n", status.Backend)
	fmt.Printf("Events:     %d\n", status.Events)
	fmt.Printf("Expansions: %d\n", status.Expansions)
	if len(status.MatchDirs) > 0 {
		fmt.Println("Match dirs:")
		for _, d := range status.MatchDirs {
			fmt.Printf("  - %s\n", d)
		}
	}
	if len(status.Keyboards) > 0 {
		fmt.Println("Keyboards:")
		for _, k := range status.Keyboards {
			fmt.Printf("  - %s\n", k)
		}
	}
}

func cmdTriggers() {
	fs := flag.NewFlagSet("triggers", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(os.Args[2:])

	cfg := loadDaemonConfig(*configPath)
	quietLogging()

	set, err := newLoader(cfg).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading match files: %v\n", err)
		os.Exit(1)
	}

	if set.Len() == 0 {
		fmt.Println("No triggers loaded.")
		fmt.Println("Match directories searched:")
		for _, d := range matchDirs(cfg) {
			fmt.Printf("  - %s\n", d)
		}
		return
	}

	triggers := set.SortedTriggers()

	fmt.Printf("%d trigger(s) loaded:\n\n", len(triggers))
	for _, t := range triggers {
		rule, ok := set.Lookup(t)
		if !ok {
			continue
		}
		fmt.Printf("  %-20s %s\n", t, preview(rule.Replace, 50))
	}
}

func cmdExpand() {
	fs := flag.NewFlagSet("expand", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: expandd expand <trigger>")
		os.Exit(1)
	}
	trigger := fs.Arg(0)

	cfg := loadDaemonConfig(*configPath)
	quietLogging()

	set, err := newLoader(cfg).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading match files: %v\n", err)
		os.Exit(1)
	}

	rule, ok := set.Lookup(trigger)
	if !ok {
		fmt.Fprintf(os.Stderr, "No such trigger: %s\n", trigger)
		os.Exit(1)
	}

	providers := vars.NewSystem()
	if cfg.Vars.Shell != "" {
		providers.Shell = cfg.Vars.Shell
	}
	timeout := time.Duration(cfg.Vars.ShellTimeoutSec) * time.Second
	renderer := template.NewRenderer(vars.NewResolver(providers, timeout))

	result := renderer.Render(context.Background(), rule, set)
	fmt.Print(result.Text)
	if result.Failures > 0 {
		fmt.Fprintf(os.Stderr, "\n(%d variable(s) failed and were left empty)\n", result.Failures)
		os.Exit(1)
	}
}

// quietLogging routes logs to stderr at warn level for one-shot commands.
func quietLogging() {
	logCfg := logging.DefaultConfig()
	logCfg.Output = "stderr"
	logCfg.Level = logging.LevelWarn
	if l, err := logging.New(logCfg); err == nil {
		logging.SetDefault(l)
	}
}

func preview(s string, max int) string {
	out := make([]rune, 0, max)
	for _, r := range s {
		if r == '\n' {
			out = append(out, '\\', 'n')
			continue
		}
		out = append(out, r)
		if len(out) >= max {
			return string(out) + "..."
		}
	}
	return string(out)
}
