package app

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/config"
	"github.com/davidahmann/lendguard/internal/intake"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/internal/review"
	"github.com/davidahmann/lendguard/internal/store"
	"github.com/davidahmann/lendguard/internal/workflow"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the outcome of one submission: a summary on success or a
// message on error, never both.
type Response struct {
	Status     string `json:"status"`
	FinalState string `json:"final_state,omitempty"`
	Message    string `json:"message,omitempty"`
}

type Options struct {
	// Stdin and Stdout back the console approval channel.
	Stdin  io.Reader
	Stdout io.Writer
}

// Service owns the components built from one configuration.
type Service struct {
	Config       config.Config
	Policy       policy.LoadedPolicy
	Store        store.Store
	Parser       *intake.Parser
	Orchestrator *workflow.Orchestrator
	Review       *review.Service
	Metrics      *workflow.Metrics

	closeStore func() error
}

func New(cfg config.Config, opts Options) (*Service, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	loaded, err := policy.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, errors.Wrap(err, "load policy")
	}

	st, closeStore, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}

	metrics := workflow.NewMetrics()
	eval, err := BuildEvaluator(cfg.Evaluator, loaded.Policy, metrics.ObserveEvaluator)
	if err != nil {
		_ = closeStore()
		return nil, errors.Wrap(err, "build evaluator")
	}

	channel, err := BuildChannel(cfg.Escalation, st, opts.Stdin, opts.Stdout)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	orch := workflow.New(loaded.Policy, eval, channel, st,
		workflow.WithComplianceMode(workflow.ComplianceMode(cfg.Workflow.ComplianceMode)),
		workflow.WithMetrics(metrics),
	)

	return &Service{
		Config:       cfg,
		Policy:       loaded,
		Store:        st,
		Parser:       intake.NewParser(eval, loaded.Policy),
		Orchestrator: orch,
		Review:       review.NewService(st),
		Metrics:      metrics,
		closeStore:   closeStore,
	}, nil
}

// Submit parses raw submission text and runs it through the pipeline.
func (s *Service) Submit(ctx context.Context, text string) Response {
	logger := logging.FromContext(ctx)

	app := s.Parser.Parse(ctx, text)
	logger.InfoContext(ctx, "submission parsed", "applicant_id", app.ApplicantID, "risk_flag", app.RiskFlag)

	res, err := s.Orchestrator.Run(ctx, app)
	if err != nil {
		logger.ErrorContext(ctx, "error processing loan application", "error", err)
		return Response{Status: StatusError, Message: err.Error()}
	}

	if err := s.Metrics.WriteTextfile(s.Config.Metrics.TextfilePath); err != nil {
		logger.WarnContext(ctx, "metrics flush failed", "error", err)
	}
	return Response{Status: StatusSuccess, FinalState: res.Summary}
}

func (s *Service) Close() error {
	if s.closeStore == nil {
		return nil
	}
	return s.closeStore()
}
