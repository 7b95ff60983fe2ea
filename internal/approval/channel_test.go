package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/lendguard/internal/store"
)

func TestConsoleChannelAnswers(t *testing.T) {
	cases := map[string]bool{
		"yes\n":   true,
		" YES \n": true,
		"Yes":     true,
		"no\n":    false,
		"y\n":     false,
		"\n":      false,
	}
	for input, want := range cases {
		var out bytes.Buffer
		ch := NewConsoleChannel(strings.NewReader(input), &out)
		got, err := ch.RequestOverride(context.Background(), Request{ApplicantID: "A1", AIDecision: "rejected"})
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
		assert.Equal(t, "Review loan application for applicant A1 (AI decision: rejected). Override? (yes/no): ", out.String())
	}
}

func TestConsoleChannelEOFIsError(t *testing.T) {
	ch := NewConsoleChannel(strings.NewReader(""), io.Discard)
	_, err := ch.RequestOverride(context.Background(), Request{ApplicantID: "A1"})
	assert.Error(t, err)
}

func TestConsoleChannelRefusesPipedFile(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ch := NewConsoleChannel(r, io.Discard)
	_, err = ch.RequestOverride(context.Background(), Request{ApplicantID: "A1"})
	assert.ErrorIs(t, err, ErrNotInteractive)

	_, _ = w.WriteString("yes\n")
	got, err := ch.AllowNonInteractive().RequestOverride(context.Background(), Request{ApplicantID: "A1"})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestConsoleChannelCancellation(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ch := NewConsoleChannel(r, io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := ch.RequestOverride(ctx, Request{ApplicantID: "A1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The answer typed after the timeout is consumed by the next request.
	go func() { _, _ = w.Write([]byte("yes\n")) }()
	got, err := ch.RequestOverride(context.Background(), Request{ApplicantID: "A1"})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestStaticChannel(t *testing.T) {
	got, err := StaticChannel{Override: true}.RequestOverride(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, got)

	_, err = StaticChannel{Err: errors.New("closed")}.RequestOverride(context.Background(), Request{})
	assert.Error(t, err)
}

func TestQueuedChannelEnqueues(t *testing.T) {
	ctx := context.Background()
	outbox := store.NewInMemoryStore()
	ch := NewQueuedChannel(outbox, "slack")
	ch.now = func() time.Time { return time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC) }

	override, err := ch.RequestOverride(ctx, Request{ApplicantID: "A1", AIDecision: "rejected", Demographic: "group_A"})
	require.NoError(t, err)
	assert.False(t, override)

	due, err := outbox.ListOutboxDue(ctx, "2025-12-20T00:00:00Z", 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, strings.HasPrefix(due[0].NotificationID, "escalation:"))
	assert.Equal(t, "A1", due[0].ApplicantID)

	var msg EscalationMessage
	require.NoError(t, json.Unmarshal(due[0].MessageJSON, &msg))
	assert.Equal(t, "rejected", msg.AIDecision)
	assert.Equal(t, "2025-12-20T00:00:00Z", msg.RequestedAt)
}

func TestSlackWebhookPoster(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewSlackWebhookPoster(srv.URL, srv.Client())
	err := p.PostEscalation(context.Background(), "slack", EscalationMessage{Request: Request{ApplicantID: "A1", AIDecision: "rejected"}})
	require.NoError(t, err)
	assert.Equal(t, "Loan application A1 needs review", received["text"])
	assert.Len(t, received["blocks"], 4)
}

func TestSlackWebhookPosterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate_limited"))
	}))
	defer srv.Close()

	err := NewSlackWebhookPoster(srv.URL, nil).PostEscalation(context.Background(), "slack", EscalationMessage{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	err = NewSlackWebhookPoster("", nil).PostEscalation(context.Background(), "slack", EscalationMessage{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestWriterPoster(t *testing.T) {
	var buf bytes.Buffer
	err := WriterPoster{W: &buf}.PostEscalation(context.Background(), "log", EscalationMessage{Request: Request{ApplicantID: "A1", AIDecision: "rejected"}, RequestedAt: "t"})
	require.NoError(t, err)
	assert.Equal(t, "escalation applicant_id=A1 ai_decision=\"rejected\" demographic=\"\" risk_flag=\"\" requested_at=t\n", buf.String())
}
