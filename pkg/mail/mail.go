// Package mail sends alert notifications by email. No third-party mail
// client appears anywhere in the dependency surface this project draws
// from, so this is the one component built directly on net/smtp.
package mail

import "context"

// Mailer sends a single email. Implementations should be safe to call
// from multiple goroutines.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
