// Command hotvaultd runs the pinned-TLS key custody server: builds the
// Fiber app, wires the platform backend and keystore directory, and
// listens until an interrupt or SIGTERM triggers a graceful shutdown.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hotvault/hotvault/config"
	"github.com/hotvault/hotvault/custody"
	"github.com/hotvault/hotvault/logging"
	"github.com/hotvault/hotvault/platform"
	"github.com/hotvault/hotvault/transport"
)

func main() {
	configPath := flag.String("config", "", "path to config JSON (default: embedded)")
	masterFile := flag.String("master-file", "", "path to a file holding the master secret (dev backend)")
	autoApprove := flag.Bool("auto-approve", false, "skip interactive presence confirmation (dev only)")
	flag.Parse()

	logCfg := logging.NewConfigFromEnv()
	if logCfg.File == "" {
		logCfg.File = logging.DefaultFileInExecDir("hotvaultd.log")
	}
	if err := logging.EnsureDir(logCfg.File); err != nil {
		panic("hotvaultd: could not create log directory")
	}
	log, _ := logging.New(logCfg)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "err", err)
		os.Exit(1)
	}

	if *masterFile == "" {
		log.Error("hotvaultd: -master-file is required until a real platform backend is wired in")
		os.Exit(1)
	}
	backend := platform.NewEnvBackend(*masterFile, cfg.Store, *autoApprove, func(msg string) {
		log.Warn("platform notification", "msg", msg)
	})

	pool := custody.NewPool(4)
	defer pool.Close()

	engine := custody.NewEngine(backend, log, pool)
	srv := &transport.Server{Engine: engine, Log: log, Backend: backend}
	app := transport.BuildApp(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := transport.Serve(ctx, app, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}
