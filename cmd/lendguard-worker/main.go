package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/app"
	"github.com/davidahmann/lendguard/internal/approval"
	"github.com/davidahmann/lendguard/internal/config"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runFn(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr); err != nil {
		fatalf("worker error: %v", err)
	}
}

var runFn = run
var fatalf = log.Fatalf

type envFn func(string) string

// run delivers queued escalations from the configured store until ctx is
// cancelled, or once with --once.
func run(ctx context.Context, args []string, getenv envFn, stdout io.Writer, stderr io.Writer) error {
	fs := flag.NewFlagSet("lendguard-worker", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to lendguard config file")
	once := fs.Bool("once", false, "process due escalations once and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfgFile := firstNonEmpty(*configPath, getenv("LENDGUARD_CONFIG"))
	if cfgFile == "" {
		return errors.New("a config file is required (--config or LENDGUARD_CONFIG)")
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg.Escalation.SlackWebhookURL = firstNonEmpty(getenv("LENDGUARD_SLACK_WEBHOOK_URL"), cfg.Escalation.SlackWebhookURL)

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: stderr})
	ctx = logging.WithLogger(ctx, logger)

	st, closeStore, err := app.OpenStore(cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	outbox, ok := st.(store.Outbox)
	if !ok {
		return errors.Errorf("store.driver=%s has no escalation outbox", cfg.Store.Driver)
	}

	poster := app.BuildPoster(cfg.Escalation, stdout, &http.Client{Timeout: 10 * time.Second})

	if *once {
		n, err := approval.ProcessOutboxDue(ctx, outbox, poster, time.Now(), 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "processed=%d\n", n)
		return nil
	}

	logger.InfoContext(ctx, "lendguard-worker polling escalations", "interval", cfg.Escalation.PollInterval.String())
	approval.RunOutboxWorker(ctx, outbox, poster, cfg.Escalation.PollInterval)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
