package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/scop/engine"
	"github.com/spaghettifunk/scop/engine/core"
)

func main() {
	configPath := flag.String("config", "scop.toml", "path to the TOML configuration")
	flag.Parse()

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal("Configuration: %v", err)
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal("%v", err)
	}

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		core.LogFatal("Initialization failed: %v", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// Vulkan objects belong to the main thread, so a signal only asks the
	// loop to stop.
	go func() {
		<-sigCh
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}()

	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("Shutdown: %v", err)
	}
	if runErr != nil {
		core.LogFatal("%v", runErr)
	}
}
