// Package alerter formats and delivers alert notifications. It always logs,
// and attempts mail delivery only when an address is configured; delivery
// failures are logged and swallowed, never propagated to the caller.
package alerter

import (
	"context"
	"fmt"
	"log"

	"github.com/last-emo-boy/uptimepulse/pkg/clock"
	"github.com/last-emo-boy/uptimepulse/pkg/mail"
)

// Alerter formats and sends alert messages.
type Alerter struct {
	mailer mail.Mailer
	clock  clock.Clock
}

// New builds an Alerter. mailer may be nil if no mail transport is configured.
func New(mailer mail.Mailer, c clock.Clock) *Alerter {
	return &Alerter{mailer: mailer, clock: c}
}

// Alert formats and sends one alert for name/url, addressed to email if set.
// level is e.g. "CRITICAL FAILURE" or "RECOVERED".
func (a *Alerter) Alert(ctx context.Context, email, name, url, level, message string) {
	subject := fmt.Sprintf("[%s] Uptime Pulse: %s", level, name)
	body := fmt.Sprintf("Name: %s\nURL: %s\nLevel: %s\nTime: %s\n\n%s",
		name, url, level, a.clock.Now().Format("2006-01-02 15:04:05 MST"), message)

	log.Printf("🚨 %s: %s", subject, message)

	if email == "" || a.mailer == nil {
		return
	}

	if err := a.mailer.Send(ctx, email, subject, body); err != nil {
		log.Printf("⚠️ failed to deliver alert email to %s: %v", email, err)
	}
}
