package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/rslist/internal/loadgen"
	"github.com/okian/rslist/pkg/logger"
)

const (
	defaultWorkersPerCPU = 2
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "Base URL of the service")
		users     = flag.Int("users", loadgen.DefaultUsers, "Number of users to register")
		events    = flag.Int("events", loadgen.DefaultEvents, "Number of events to add")
		budget    = flag.Int("budget", loadgen.DefaultBudget, "Vote budget per user")
		votes     = flag.Int("votes", loadgen.DefaultVotes, "Number of vote requests")
		bids      = flag.Int("bids", loadgen.DefaultBids, "Number of buy requests")
		ranks     = flag.Int("ranks", loadgen.DefaultRanks, "Bids target ranks 1..N")
		maxAmount = flag.Int("max-amount", loadgen.DefaultMaxAmount, "Largest bid amount")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkersPerCPU, "Concurrent requests in flight")
		timeout   = flag.Duration("timeout", loadgen.DefaultTimeout, "HTTP request timeout")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for the traffic plan")
		report    = flag.String("report", "", "Write the JSON report to this file")
		logFile   = flag.String("log", "-", "Also log to this file (empty: loadgen_TIMESTAMP.log, -: stdout only)")
		verbose   = flag.Bool("verbose", false, "Log every failed request")
	)
	flag.Parse()

	closer, err := loadgen.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	r, err := loadgen.Run(ctx, &loadgen.Config{
		BaseURL:   *baseURL,
		Users:     *users,
		Events:    *events,
		Budget:    *budget,
		Votes:     *votes,
		Bids:      *bids,
		Ranks:     *ranks,
		MaxAmount: *maxAmount,
		Workers:   *workers,
		Timeout:   *timeout,
		Seed:      *seed,
		Report:    *report,
		Verbose:   *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		exit(1, closer, stop, cancel)
	}
	if !r.OK() {
		exit(2, closer, stop, cancel)
	}
}

func exit(code int, closer interface{ Close() error }, cancels ...context.CancelFunc) {
	for _, c := range cancels {
		c()
	}
	_ = closer.Close()
	os.Exit(code)
}
