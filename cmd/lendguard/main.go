package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/davidahmann/lendguard/internal/app"
	"github.com/davidahmann/lendguard/internal/config"
	"github.com/davidahmann/lendguard/internal/intake"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/pkg/types"
)

func main() {
	exitFn(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

var exitFn = os.Exit

var nowFn = time.Now

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch args[1] {
	case "submit":
		return handleSubmit(ctx, args[2:], stdin, stdout, stderr)
	case "apply":
		return handleApply(ctx, args[2:], stdin, stdout, stderr)
	case "reviews":
		return handleReviews(ctx, args[2:], stdin, stdout, stderr)
	case "policy":
		return handlePolicy(args[2:], stdout, stderr)
	default:
		usage(stderr)
		return 2
	}
}

func handleSubmit(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", envOrDefault("LENDGUARD_CONFIG", ""), "path to lendguard config file")
	file := fs.String("file", "", "read the submission from a file instead of arguments or stdin")
	jsonOut := fs.Bool("json", false, "print the response as JSON")
	if err := fs.Parse(args); err != nil {
		fs.Usage()
		return 2
	}

	var text string
	switch {
	case *file != "":
		// #nosec G304 -- operator-provided submission path.
		raw, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintln(stderr, "read submission:", err)
			return 1
		}
		text = string(raw)
	case fs.NArg() > 0:
		text = strings.Join(fs.Args(), " ")
	default:
		raw, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintln(stderr, "read submission:", err)
			return 1
		}
		text = string(raw)
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(stderr, "submit requires submission text")
		return 2
	}

	return submit(ctx, *configPath, text, *jsonOut, stdin, stdout, stderr)
}

func handleApply(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", envOrDefault("LENDGUARD_CONFIG", ""), "path to lendguard config file")
	jsonOut := fs.Bool("json", false, "print the response as JSON")
	var form intake.FormInput
	fs.StringVar(&form.ApplicantID, "applicant-id", "", "applicant id")
	fs.StringVar(&form.Demographic, "demographic", "", "demographic group")
	fs.StringVar(&form.LoanAmount, "loan-amount", "", "requested amount")
	fs.StringVar(&form.LoanPurpose, "loan-purpose", "", "purpose of the loan")
	fs.StringVar(&form.Description, "description", "", "free-text description")
	fs.StringVar(&form.CreditScore, "credit-score", "", "credit score")
	fs.StringVar(&form.AnnualIncome, "annual-income", "", "annual income")
	fs.StringVar(&form.EmploymentStatus, "employment-status", "", "employment status")
	fs.StringVar(&form.LoanCriteria, "criteria", "", "comma-separated decision criteria")
	if err := fs.Parse(args); err != nil {
		fs.Usage()
		return 2
	}

	application, err := intake.BuildApplication(form, nowFn())
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}
	text, err := intake.Encode(application)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	return submit(ctx, *configPath, text, *jsonOut, stdin, stdout, stderr)
}

func submit(ctx context.Context, configPath, text string, jsonOut bool, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	svc, ctx, code := openService(ctx, configPath, stdin, stdout, stderr)
	if svc == nil {
		return code
	}
	defer func() { _ = svc.Close() }()

	resp := svc.Submit(ctx, text)
	if jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
	} else if resp.Status == app.StatusSuccess {
		fmt.Fprintln(stdout, resp.FinalState)
	}

	if resp.Status != app.StatusSuccess {
		fmt.Fprintf(stderr, "submit failed: %s\n", resp.Message)
		return 1
	}
	return 0
}

func handleReviews(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	fs := flag.NewFlagSet("reviews "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", envOrDefault("LENDGUARD_CONFIG", ""), "path to lendguard config file")
	decision := fs.String("decision", "", "approved or rejected")
	comments := fs.String("comments", "", "auditor comments")
	if err := fs.Parse(args[1:]); err != nil {
		fs.Usage()
		return 2
	}

	switch args[0] {
	case "list":
	case "show", "decide":
		if fs.NArg() != 1 {
			fmt.Fprintf(stderr, "reviews %s requires <applicant_id>\n", args[0])
			fs.Usage()
			return 2
		}
	default:
		usage(stderr)
		return 2
	}

	svc, ctx, code := openService(ctx, *configPath, stdin, stdout, stderr)
	if svc == nil {
		return code
	}
	defer func() { _ = svc.Close() }()

	switch args[0] {
	case "list":
		pending, err := svc.Review.Pending(ctx)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		fmt.Fprintf(stdout, "pending=%d\n", len(pending))
		for _, a := range pending {
			fmt.Fprintf(stdout, "%s demographic=%q risk_flag=%q\n", a.ApplicantID, a.Demographic, a.RiskFlag)
		}
		return 0
	case "show":
		a, err := svc.Review.Get(ctx, fs.Arg(0))
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		return writeJSON(stdout, stderr, a)
	default:
		a, err := svc.Review.Decide(ctx, fs.Arg(0), *decision, *comments)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		fmt.Fprintf(stdout, "updated applicant_id=%s final_decision=%s\n", a.ApplicantID, a.FinalDecision)
		return 0
	}
}

func handlePolicy(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "lint":
		fs := flag.NewFlagSet("policy lint", flag.ContinueOnError)
		fs.SetOutput(stderr)
		if err := fs.Parse(args[1:]); err != nil {
			fs.Usage()
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "policy lint requires <policy_path>")
			fs.Usage()
			return 2
		}
		loaded, err := policy.LoadPolicy(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 1
		}
		fmt.Fprintf(stdout, "ok policy_id=%s policy_hash=%s\n", loaded.Policy.PolicyID, loaded.Hash)
		return 0
	default:
		usage(stderr)
		return 2
	}
}

// openService loads config and builds the service, returning nil and an exit
// code on failure. The returned context carries the configured logger.
func openService(ctx context.Context, configPath string, stdin io.Reader, stdout io.Writer, stderr io.Writer) (*app.Service, context.Context, int) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintln(stderr, "config:", err)
			return nil, ctx, 1
		}
		cfg = loaded
	}

	logger := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: stderr})
	ctx = logging.WithLogger(ctx, logger)

	svc, err := app.New(cfg, app.Options{Stdin: stdin, Stdout: stdout})
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return nil, ctx, 1
	}
	return svc, ctx, 0
}

func writeJSON(stdout io.Writer, stderr io.Writer, a types.Application) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "    ")
	if err := enc.Encode(a); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}

func envOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func usage(w io.Writer) {
	fmt.Fprint(w, `LendGuard CLI

Usage:
  lendguard submit [--config PATH] [--file PATH] [--json] [text...]
  lendguard apply [--config PATH] --applicant-id ID --demographic D --loan-amount N --loan-purpose P
                  --description TEXT --credit-score N --annual-income N --employment-status S [--criteria a,b]
  lendguard reviews list [--config PATH]
  lendguard reviews show [--config PATH] <applicant_id>
  lendguard reviews decide [--config PATH] --decision approved|rejected [--comments TEXT] <applicant_id>
  lendguard policy lint <policy_path>
`)
}
