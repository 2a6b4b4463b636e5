package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"expandd/internal/config"
	"expandd/internal/engine"
	"expandd/internal/history"
	"expandd/internal/input"
	"expandd/internal/ipc"
	"expandd/internal/logging"
	"expandd/internal/matchfile"
	"expandd/internal/notify"
	"expandd/internal/output"
	"expandd/internal/template"
	"expandd/internal/vars"
	"expandd/internal/watcher"
)

// daemon bundles the running collaborators for the IPC handler.
type daemon struct {
	cfg       *config.Config
	loader    *matchfile.Loader
	engine    *engine.Engine
	source    *input.Evdev
	store     *history.Store
	startedAt time.Time
	shutdown  context.CancelFunc

	reloadMu sync.Mutex
}

func cmdRun() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	dryRun := fs.Bool("dry-run", false, "log expansions instead of injecting them")
	fs.Parse(os.Args[2:])

	cfg := loadDaemonConfig(*configPath)

	if err := setupLogging(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Default().Close()

	logging.Info("starting expandd", "version", version)

	// Rules
	loader := newLoader(cfg)
	set, err := loader.Load()
	if err != nil {
		logging.Error("failed to load match files", "error", err)
		os.Exit(1)
	}
	logging.Info("match files loaded",
		"triggers", set.Len(),
		"dirs", matchDirs(cfg))

	// Variable resolution
	providers := vars.NewSystem()
	if cfg.Vars.Shell != "" {
		providers.Shell = cfg.Vars.Shell
	}
	timeout := time.Duration(cfg.Vars.ShellTimeoutSec) * time.Second
	renderer := template.NewRenderer(vars.NewResolver(providers, timeout))

	// Optional collaborators
	var opts []engine.Option

	var store *history.Store
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = defaultHistoryPath()
		}
		store, err = history.Open(path)
		if err != nil {
			logging.Warn("history disabled", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, engine.WithRecorder(store))
		}
	}

	if cfg.Notify.Enabled {
		notifier := notify.New()
		defer notifier.Close()
		opts = append(opts, engine.WithNotifier(notifier))
	}

	eng := engine.New(set, renderer, opts...)

	// Output sink
	var sink output.Sink
	if *dryRun || cfg.Output.Backend == "log" {
		sink = output.NewLogSink()
		logging.Info("dry run: expansions will be logged, not injected")
	} else {
		sink = output.NewWtypeSink(cfg.Output.DelayMs)
	}

	// Input source
	source := input.NewEvdev(cfg.Input.Devices)
	if ok, detail := source.Available(); !ok {
		logging.Error("keyboard capture unavailable", "detail", detail)
		fmt.Fprintf(os.Stderr, "Error: %s\n", detail)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := source.Start(ctx); err != nil {
		logging.Error("failed to start keyboard source", "error", err)
		os.Exit(1)
	}
	defer source.Stop()

	d := &daemon{
		cfg:       cfg,
		loader:    loader,
		engine:    eng,
		source:    source,
		store:     store,
		startedAt: time.Now(),
		shutdown:  cancel,
	}

	// Control socket
	if cfg.IPC.Enabled {
		socket := cfg.IPC.Socket
		if socket == "" {
			socket = config.DefaultSocketPath()
		}
		srvCfg := ipc.DefaultServerConfig(socket)
		srvCfg.Version = version
		server := ipc.NewServer(srvCfg, d)
		if err := server.Start(); err != nil {
			logging.Error("failed to start control socket", "error", err)
			os.Exit(1)
		}
		defer server.Stop()
		logging.Info("control socket listening", "socket", socket)
	}

	// Match file hot reload
	var reloadEvents <-chan watcher.Event
	var reloadErrors <-chan error
	if cfg.Reload.Enabled {
		w, err := watcher.New(matchDirs(cfg), cfg.Reload.DebounceMs)
		if err != nil {
			logging.Warn("hot reload disabled", "error", err)
		} else if err := w.Start(); err != nil {
			logging.Warn("hot reload disabled", "error", err)
		} else {
			defer w.Stop()
			reloadEvents = w.Events()
			reloadErrors = w.Errors()
			logging.Info("watching match directories for changes")
		}
	}

	logging.Info("expandd ready", "triggers", set.Len())

	suppressMs := cfg.Input.SuppressMs
	if suppressMs <= 0 {
		suppressMs = 150
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info("shutting down")
			return

		case ev, ok := <-source.Events():
			if !ok {
				logging.Error("keyboard source closed")
				return
			}
			edit := eng.OnEvent(ctx, ev)
			if edit == nil {
				continue
			}
			source.Suppress(suppressMs)
			if err := sink.Apply(ctx, edit.DeleteCount, edit.Insert); err != nil {
				logging.Error("injection failed", "error", err)
			}

		case wev, ok := <-reloadEvents:
			if !ok {
				reloadEvents = nil
				continue
			}
			logging.Info("match files changed, reloading", "files", len(wev.Paths))
			if _, err := d.reload(); err != nil {
				logging.Error("reload failed, keeping previous rules", "error", err)
			}

		case err, ok := <-reloadErrors:
			if !ok {
				reloadErrors = nil
				continue
			}
			logging.Warn("match watcher error", "error", err)
		}
	}
}

// reload rebuilds the rule set from disk and swaps it into the engine.
// Concurrent reload requests (watcher and IPC) are serialized.
func (d *daemon) reload() (int, error) {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	set, err := d.loader.Load()
	if err != nil {
		return 0, err
	}
	d.engine.SetRules(set)
	logging.Info("rules reloaded", "triggers", set.Len())
	return set.Len(), nil
}

func setupLogging(cfg *config.Config) error {
	logCfg := logging.DefaultConfig()

	if cfg.Logging.Level != "" {
		level, err := logging.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		logCfg.Level = level
	}
	if cfg.Logging.Format != "" {
		format, err := logging.ParseFormat(cfg.Logging.Format)
		if err != nil {
			return err
		}
		logCfg.Format = format
	}
	if cfg.Logging.Output != "" {
		logCfg.Output = cfg.Logging.Output
	}
	if cfg.Logging.File != "" {
		logCfg.FilePath = cfg.Logging.File
	}
	if cfg.Logging.MaxSizeMB > 0 {
		logCfg.MaxSize = cfg.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxAgeDays > 0 {
		logCfg.MaxAge = cfg.Logging.MaxAgeDays
	}
	if cfg.Logging.MaxBackups > 0 {
		logCfg.MaxBackups = cfg.Logging.MaxBackups
	}
	logCfg.Compress = cfg.Logging.Compress

	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)
	return nil
}

func defaultHistoryPath() string {
	return filepath.Join(config.StateDir(), "history.db")
}
