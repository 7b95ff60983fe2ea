package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/lendguard/internal/approval"
	"github.com/davidahmann/lendguard/internal/config"
	"github.com/davidahmann/lendguard/internal/evaluator"
	"github.com/davidahmann/lendguard/internal/intake"
	"github.com/davidahmann/lendguard/internal/policy"
	"github.com/davidahmann/lendguard/internal/store"
	"github.com/davidahmann/lendguard/internal/workflow"
	"github.com/davidahmann/lendguard/pkg/types"
)

const testPolicyYAML = `
policy_id: test
bias:
  watch_groups: [group_A]
  threshold: 1
ethics:
  guidelines:
    - Do not discriminate based on protected characteristics
  prohibited_criteria: [Zip Code Risk Score]
regulations:
  - name: Anti-Discrimination Act
    rule: Rule Y
defaults:
  loan_criteria: [credit_score, annual_income]
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "governance.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte(testPolicyYAML), 0o600))

	cfg := config.Default()
	cfg.PolicyPath = policyPath
	cfg.Store = config.StoreConfig{Driver: "memory"}
	cfg.Evaluator.Provider = "heuristic"
	cfg.Escalation.Channel = "none"
	cfg.Metrics.TextfilePath = filepath.Join(dir, "lendguard.prom")
	require.NoError(t, cfg.Validate())
	return cfg
}

func newService(t *testing.T, cfg config.Config) *Service {
	t.Helper()
	svc, err := New(cfg, Options{Stdin: strings.NewReader(""), Stdout: &bytes.Buffer{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestSubmitEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	svc := newService(t, cfg)
	ctx := context.Background()

	flagged := svc.Submit(ctx, `{"applicant_id": "101", "demographic": "group_A"}`)
	require.Equal(t, StatusSuccess, flagged.Status, flagged.Message)
	assert.Equal(t, "applicant_id=101 demographic='group_A' loan_status='pending' risk_flag='Bias likely for: group_A' final_decision='requires further review'", flagged.FinalState)

	approved := svc.Submit(ctx, `{"applicant_id": 102, "demographic": "group_B"}`)
	require.Equal(t, StatusSuccess, approved.Status)
	assert.Equal(t, "applicant_id=102 demographic='group_B' loan_status='pending' risk_flag='No bias for: group_B' final_decision='approved'", approved.FinalState)
	assert.Empty(t, approved.Message)

	malformed := svc.Submit(ctx, "not json")
	require.Equal(t, StatusSuccess, malformed.Status)
	assert.True(t, strings.HasPrefix(malformed.FinalState, "applicant_id=unknown demographic='unknown'"))

	all, err := svc.Store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	pending, err := svc.Review.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "101", pending[0].ApplicantID)

	_, err = svc.Review.Decide(ctx, "101", types.DecisionApproved, "verified income")
	require.NoError(t, err)
	pending, err = svc.Review.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	prom, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "lendguard_workflow_runs_total")
}

func TestSubmitFormEncodedApplication(t *testing.T) {
	svc := newService(t, testConfig(t))

	app := types.Application{ApplicantID: "A9+2025-03-07-09-05", Demographic: "group_B", LoanCriteria: []string{"Zip Code Risk Score"}}
	text, err := intake.Encode(app)
	require.NoError(t, err)

	resp := svc.Submit(context.Background(), text)
	require.Equal(t, StatusSuccess, resp.Status)
	assert.True(t, strings.HasSuffix(resp.FinalState, "final_decision='requires further review'"))

	stored, err := svc.Review.Get(context.Background(), "A9+2025-03-07-09-05")
	require.NoError(t, err)
	require.NotNil(t, stored.EthicsReview)
	assert.False(t, stored.EthicsReview.Approves())
	require.NotNil(t, stored.ComplianceReport)
	assert.False(t, stored.ComplianceReport.IsCompliant)
}

type brokenEvaluator struct{}

func (brokenEvaluator) Evaluate(ctx context.Context, system, payload string) (string, error) {
	return "", errors.New("model offline")
}

func (brokenEvaluator) EvaluateStructured(ctx context.Context, system, payload string, schema evaluator.Schema) (map[string]any, error) {
	return nil, errors.New("model offline")
}

func TestSubmitReportsBiasFailure(t *testing.T) {
	p := policy.Policy{PolicyID: "test"}
	st := store.NewInMemoryStore()
	svc := &Service{
		Store:        st,
		Parser:       intake.NewParser(brokenEvaluator{}, p),
		Orchestrator: workflow.New(p, brokenEvaluator{}, nil, st),
	}

	resp := svc.Submit(context.Background(), `{"applicant_id": "A1"}`)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Message, "model offline")
	assert.Empty(t, resp.FinalState)

	all, err := st.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestNewFailsOnMissingPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.PolicyPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(cfg, Options{})
	assert.Error(t, err)
}

func TestOpenStoreDrivers(t *testing.T) {
	st, closeFn, err := OpenStore(config.StoreConfig{Driver: "jsonfile", Path: filepath.Join(t.TempDir(), "d.json")})
	require.NoError(t, err)
	assert.IsType(t, &store.JSONFileStore{}, st)
	assert.NoError(t, closeFn())

	st, closeFn, err = OpenStore(config.StoreConfig{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared"})
	require.NoError(t, err)
	_, isOutbox := st.(store.Outbox)
	assert.True(t, isOutbox)
	assert.NoError(t, closeFn())

	_, _, err = OpenStore(config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestBuildChannel(t *testing.T) {
	mem := store.NewInMemoryStore()

	ch, err := BuildChannel(config.EscalationConfig{Channel: "queued"}, mem, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &approval.QueuedChannel{}, ch)

	_, err = BuildChannel(config.EscalationConfig{Channel: "queued"}, store.NewJSONFileStore(filepath.Join(t.TempDir(), "d.json")), nil, nil)
	assert.Error(t, err)

	ch, err = BuildChannel(config.EscalationConfig{Channel: "console"}, mem, strings.NewReader("yes\n"), &bytes.Buffer{})
	require.NoError(t, err)
	override, err := ch.RequestOverride(context.Background(), approval.Request{ApplicantID: "A1", AIDecision: "rejected"})
	require.NoError(t, err)
	assert.True(t, override)
}

func TestBuildEvaluatorLayers(t *testing.T) {
	cfg := config.Default().Evaluator
	cfg.Provider = "heuristic"

	eval, err := BuildEvaluator(cfg, policy.Policy{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &evaluator.Guard{}, eval)

	cfg.CacheTTL = time.Minute
	cfg.CacheSize = 16
	eval, err = BuildEvaluator(cfg, policy.Policy{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &evaluator.Cached{}, eval)

	cfg.Provider = "bard"
	_, err = BuildEvaluator(cfg, policy.Policy{}, nil)
	assert.Error(t, err)
}

func TestBuildPoster(t *testing.T) {
	assert.IsType(t, approval.WriterPoster{}, BuildPoster(config.EscalationConfig{}, &bytes.Buffer{}, nil))
	assert.IsType(t, &approval.SlackWebhookPoster{}, BuildPoster(config.EscalationConfig{SlackWebhookURL: "https://hooks.example/x"}, nil, nil))
}
