package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"dicebank/cmd"
	"dicebank/database"
	"dicebank/domain/services"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(os.Args[2:]); err != nil {
			log.WithError(err).Fatal("Migration error")
		}
		return
	}

	// Check for the fairness analysis subcommand
	if len(os.Args) > 1 && os.Args[1] == "analyze" {
		if err := handleAnalyzeCommand(os.Args[2:]); err != nil {
			log.WithError(err).Fatal("Analysis error")
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.WithField("signal", sig.String()).Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dicebank migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

// handleAnalyzeCommand runs the fairness simulation. With a seed the run is
// reproducible; without one the production crypto source is measured.
func handleAnalyzeCommand(args []string) error {
	trials := 100000
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid trial count %q: %w", args[0], err)
		}
		trials = n
	}

	src := services.NewCryptoRandomSource()
	if len(args) > 1 {
		seed, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed %q: %w", args[1], err)
		}
		src = services.NewSeededRandomSource(seed)
	}

	report, err := cmd.AnalyzeFairness(src, trials)
	if err != nil {
		return err
	}
	report.Print(os.Stdout)
	return nil
}
