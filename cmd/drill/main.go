package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/coach/internal/drill"
)

const (
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultRunBudget = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", drill.DefaultBaseURL, "Base URL of the service")
		players    = flag.Int("players", drill.DefaultPlayers, "Number of synthetic players")
		perPlayer  = flag.Int("per-player", drill.DefaultPerPlayer, "Evaluations per player")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", drill.DefaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", drill.DefaultSettle, "How long to wait for queued evaluations to apply")
		outputFile = flag.String("output", "", "Save generated evaluations to this JSON file")
		logFile    = flag.String("log", "", "Also write log output to this file")
		verbose    = flag.Bool("verbose", false, "List every player in the summary")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		drill.ShowHelp()
		return
	}

	closer, err := drill.SetupLogging(*logFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logging:", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunBudget)
	defer cancel()

	report, runErr := drill.Run(ctx, &drill.Config{
		BaseURL:    *baseURL,
		Players:    *players,
		PerPlayer:  *perPlayer,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	})
	if report != nil {
		if out, err := report.Render(*verbose); err == nil {
			fmt.Fprintln(os.Stdout, out)
		}
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, "drill failed:", runErr)
		closer.Close()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: closer closed above
	}
}
