package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OldStager01/demand-predictor/internal/logger"
	"github.com/OldStager01/demand-predictor/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9000, "simulator server port")
	logLevel := flag.String("log-level", "info", "log level")
	synthetic := flag.Bool("synthetic", true, "answer unknown points with generated addresses")
	pattern := flag.String("pattern", "healthy", "initial failure pattern: healthy, down, flaky, slow, rate_limited")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting geocoder simulator")

	sim := simulator.New(simulator.Config{
		Port:      *port,
		Synthetic: *synthetic,
	})
	sim.SetPattern(simulator.ParsePattern(*pattern))

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down simulator")
	return sim.Stop()
}
