package review

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/davidahmann/lendguard/internal/logging"
	"github.com/davidahmann/lendguard/internal/store"
	"github.com/davidahmann/lendguard/pkg/types"
)

var (
	ErrNotFound        = errors.New("application not found")
	ErrNotPending      = errors.New("application is no longer pending review")
	ErrInvalidDecision = errors.New("final decision must be approved or rejected")
)

// Service lets an auditor resolve applications flagged for further review.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Pending lists records whose final decision is still "requires further review".
func (s *Service) Pending(ctx context.Context) ([]types.Application, error) {
	all, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	pending := []types.Application{}
	for _, app := range all {
		if app.FinalDecision == types.DecisionRequiresReview {
			pending = append(pending, app)
		}
	}
	return pending, nil
}

func (s *Service) Get(ctx context.Context, applicantID string) (types.Application, error) {
	app, ok, err := s.store.FindByApplicant(ctx, applicantID)
	if err != nil {
		return types.Application{}, err
	}
	if !ok {
		return types.Application{}, ErrNotFound
	}
	return app, nil
}

// Decide records the auditor's decision on a pending application. Non-empty
// comments are stored as "Auditor: <comments>".
func (s *Service) Decide(ctx context.Context, applicantID, decision, comments string) (types.Application, error) {
	switch decision {
	case types.DecisionApproved, types.DecisionRejected:
	default:
		return types.Application{}, errors.Wrapf(ErrInvalidDecision, "got %q", decision)
	}

	app, err := s.Get(ctx, applicantID)
	if err != nil {
		return types.Application{}, err
	}
	if app.FinalDecision != types.DecisionRequiresReview {
		return types.Application{}, errors.Wrapf(ErrNotPending, "applicant %s is %q", applicantID, app.FinalDecision)
	}

	note := ""
	if trimmed := strings.TrimSpace(comments); trimmed != "" {
		note = "Auditor: " + trimmed
	}

	updated, err := s.store.UpdateFinalDecision(ctx, applicantID, decision, note)
	if err != nil {
		return types.Application{}, errors.Wrap(err, "update decision")
	}
	if !updated {
		return types.Application{}, ErrNotFound
	}

	logging.FromContext(ctx).InfoContext(ctx, "auditor decision recorded", "applicant_id", applicantID, "final_decision", decision)
	app.FinalDecision = decision
	app.AuditorComments = note
	return app, nil
}
