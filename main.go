package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/sparklens/tweetgrab/internal"
	"github.com/sparklens/tweetgrab/pkg/logger"
)

var log = logger.Get("Main")

func defaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		log.Emit(logger.FATAL, "Cannot determine user's home directory - %v\n", err.Error())
		os.Exit(1)
	}

	return filepath.Join(home, ".config", "tweetgrab", "config.yaml")
}

// main() is the entry point to the program. The users configuration is
// loaded from their home directory (or the path provided via -config),
// after which the Tweetgrab runtime is started. Interrupt/termination
// signals cancel the runtime context, allowing a graceful shutdown.
func main() {
	// A missing .env is fine; environment overrides are optional
	godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	config := internal.TweetgrabConfig{}
	if err := config.LoadFromFile(*configPath); err != nil {
		log.Emit(logger.FATAL, "Failed to load configuration: %v\n", err.Error())
		os.Exit(1)
	}

	tweetgrab, err := internal.New(config)
	if err != nil {
		log.Emit(logger.FATAL, "Failed to initialise Tweetgrab: %v\n", err.Error())
		os.Exit(1)
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	exitChannel := make(chan os.Signal, 1)
	signal.Notify(exitChannel, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-exitChannel
		log.Emit(logger.WARNING, "Received signal %s, shutting down...\n", sig)
		ctxCancel()
	}()

	if err := tweetgrab.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Tweetgrab exited with error: %v\n", err.Error())
		os.Exit(1)
	}
}
