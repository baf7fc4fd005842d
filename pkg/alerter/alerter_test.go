package alerter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/last-emo-boy/uptimepulse/pkg/clock"
)

type fakeMailer struct {
	sent    bool
	to      string
	subject string
	body    string
	err     error
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.sent = true
	f.to = to
	f.subject = subject
	f.body = body
	return f.err
}

func TestAlert_SendsMailWhenEmailConfigured(t *testing.T) {
	mailer := &fakeMailer{}
	a := New(mailer, clock.NewFake(clock.New().Now()))

	a.Alert(context.Background(), "oncall@example.com", "api", "https://api.example.com", "CRITICAL FAILURE", "3 consecutive failures")

	assert.True(t, mailer.sent)
	assert.Equal(t, "oncall@example.com", mailer.to)
	assert.Equal(t, "[CRITICAL FAILURE] Uptime Pulse: api", mailer.subject)
}

func TestAlert_NoEmailSkipsDelivery(t *testing.T) {
	mailer := &fakeMailer{}
	a := New(mailer, clock.NewFake(clock.New().Now()))

	a.Alert(context.Background(), "", "api", "https://api.example.com", "RECOVERED", "back up")

	assert.False(t, mailer.sent)
}

func TestAlert_SwallowsDeliveryFailure(t *testing.T) {
	mailer := &fakeMailer{err: assert.AnError}
	a := New(mailer, clock.NewFake(clock.New().Now()))

	require.NotPanics(t, func() {
		a.Alert(context.Background(), "oncall@example.com", "api", "https://api.example.com", "CRITICAL FAILURE", "boom")
	})
	assert.True(t, mailer.sent)
}

func TestAlert_NilMailerDoesNotPanic(t *testing.T) {
	a := New(nil, clock.NewFake(clock.New().Now()))

	require.NotPanics(t, func() {
		a.Alert(context.Background(), "oncall@example.com", "api", "https://api.example.com", "CRITICAL FAILURE", "boom")
	})
}
