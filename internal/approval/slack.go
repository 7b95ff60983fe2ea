package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

var ErrNotConfigured = errors.New("slack webhook url is not configured")

// SlackWebhookPoster posts escalations to a Slack incoming webhook.
type SlackWebhookPoster struct {
	webhookURL string
	httpClient *http.Client
}

func NewSlackWebhookPoster(webhookURL string, client *http.Client) *SlackWebhookPoster {
	if client == nil {
		client = http.DefaultClient
	}
	return &SlackWebhookPoster{webhookURL: webhookURL, httpClient: client}
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (p *SlackWebhookPoster) PostEscalation(ctx context.Context, channel string, message EscalationMessage) error {
	if p.webhookURL == "" {
		return ErrNotConfigured
	}

	title := fmt.Sprintf("Loan application %s needs review", message.ApplicantID)
	msg := slackMessage{
		Text: title,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: title}},
			{Type: "section", Fields: []slackText{
				{Type: "mrkdwn", Text: "*AI decision*\n" + message.AIDecision},
				{Type: "mrkdwn", Text: "*Demographic*\n" + message.Demographic},
			}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*Risk flag*\n" + message.RiskFlag}},
			{Type: "context", Text: &slackText{Type: "mrkdwn", Text: fmt.Sprintf("_Requested %s via %s_", message.RequestedAt, channel)}},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "slack marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "slack request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req) // #nosec G107 -- webhook URL from trusted config.
	if err != nil {
		return errors.Wrap(err, "slack send")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("slack webhook %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// WriterPoster prints escalations as single lines, for running the worker
// without a Slack workspace.
type WriterPoster struct {
	W io.Writer
}

func (p WriterPoster) PostEscalation(ctx context.Context, channel string, message EscalationMessage) error {
	_, err := fmt.Fprintf(p.W, "escalation applicant_id=%s ai_decision=%q demographic=%q risk_flag=%q requested_at=%s\n",
		message.ApplicantID, message.AIDecision, message.Demographic, message.RiskFlag, message.RequestedAt)
	return err
}
