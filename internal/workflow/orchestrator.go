package workflow

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/approval"
	"github.com/davidahmann/lendguard/internal/checks"
	"github.com/davidahmann/lendguard/internal/decision"
	"github.com/davidahmann/lendguard/internal/evaluator"
	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/internal/store"
	"github.com/davidahmann/lendguard/pkg/types"
)

type ComplianceMode string

const (
	// ComplianceAuditOnly records the compliance report without letting it
	// influence any decision.
	ComplianceAuditOnly ComplianceMode = "audit_only"
	// ComplianceEnforce rejects an approved decision whose audit found a
	// violation. The rejection then goes through human escalation.
	ComplianceEnforce ComplianceMode = "enforce"
)

type Result struct {
	RunID       string
	Application types.Application
	AIDecision  string
	Summary     string
}

type Orchestrator struct {
	policy     policy.Policy
	bias       *checks.BiasScreen
	ethics     *checks.EthicsReview
	compliance *checks.ComplianceAudit
	escalation *checks.Escalation
	store      store.Store
	mode       ComplianceMode
	metrics    *Metrics
}

type Option func(*Orchestrator)

func WithComplianceMode(mode ComplianceMode) Option {
	return func(o *Orchestrator) {
		if mode != "" {
			o.mode = mode
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New wires the check stages around a single evaluator. A nil channel never
// overrides.
func New(p policy.Policy, eval evaluator.Evaluator, channel approval.Channel, st store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		policy:     p,
		bias:       checks.NewBiasScreen(eval, p),
		ethics:     checks.NewEthicsReview(eval, p),
		compliance: checks.NewComplianceAudit(eval, p),
		escalation: checks.NewEscalation(channel),
		store:      st,
		mode:       ComplianceAuditOnly,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run takes one application through monitor and decide, persists the
// annotated record and returns its summary. Only a bias screen failure
// aborts the run; nothing is persisted in that case.
func (o *Orchestrator) Run(ctx context.Context, in types.Application) (Result, error) {
	runID := uuid.NewString()
	logger := logging.FromContext(ctx).With("run_id", runID, "applicant_id", in.ApplicantID)
	ctx = logging.WithLogger(ctx, logger)

	app := in.Clone()
	if app.LoanStatus == "" {
		app.LoanStatus = types.LoanStatusPending
	}

	var aiDecision string
	for stage := StageMonitor; stage != StageDone; stage = NextStage(stage) {
		var err error
		switch stage {
		case StageMonitor:
			err = o.monitor(ctx, &app)
		case StageDecide:
			aiDecision, err = o.decide(ctx, &app)
		}
		if err != nil {
			o.metrics.StageFailed(string(stage))
			logger.ErrorContext(ctx, "workflow run aborted", "stage", stage, "error", err)
			return Result{}, err
		}
	}

	if o.store != nil {
		if err := o.store.Append(ctx, app); err != nil {
			o.metrics.StageFailed("store")
			logger.ErrorContext(ctx, "failed to persist decision", "error", err)
		}
	}
	o.metrics.ObserveRun(app.FinalDecision)

	summary := Summary(app)
	logger.InfoContext(ctx, "workflow run complete", "ai_decision", aiDecision, "final_decision", app.FinalDecision)
	return Result{RunID: runID, Application: app, AIDecision: aiDecision, Summary: summary}, nil
}

func (o *Orchestrator) monitor(ctx context.Context, app *types.Application) error {
	app.LoanCriteria = o.policy.CriteriaOrDefault(app.LoanCriteria)

	verdict, err := o.bias.Screen(ctx, []types.Application{*app})
	if err != nil {
		return err
	}
	app.RiskFlag = verdict
	return nil
}

func (o *Orchestrator) decide(ctx context.Context, app *types.Application) (string, error) {
	logger := logging.FromContext(ctx)

	review := o.ethics.Review(ctx, *app)
	app.EthicsReview = &review

	aiDecision := AIDecision(app.RiskFlag, review)

	payload, err := decision.BuildComplianceDecision(app.ApplicantID, aiDecision, app.LoanCriteria)
	if err != nil {
		return "", errors.Wrap(err, "build compliance payload")
	}
	report := o.compliance.Audit(ctx, payload)
	app.ComplianceReport = &report
	if checks.AuditFailed(report) {
		o.metrics.StageFailed("compliance")
	}
	if checks.ReviewFailed(review) {
		o.metrics.StageFailed("ethics")
	}

	if o.mode == ComplianceEnforce && aiDecision == types.DecisionApproved && !report.IsCompliant && !checks.AuditFailed(report) {
		logger.WarnContext(ctx, "compliance audit rejected approved decision",
			"decision_id", payload.DecisionID, "regulations", report.NonCompliantRegulations)
		aiDecision = types.DecisionRejected
	}

	switch TransitionFromDecision(aiDecision) {
	case ActionApprove:
		app.FinalDecision = types.DecisionApproved
	case ActionFlagForReview:
		app.FinalDecision = aiDecision
	case ActionEscalate:
		app.FinalDecision = o.escalation.Escalate(ctx, *app, aiDecision)
	}
	return aiDecision, nil
}
