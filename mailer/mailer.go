// Package mailer delivers provisional secrets to users.
package mailer

import (
	"context"
	"fmt"
)

// Reason tags why a provisional secret is being sent.
type Reason string

const (
	ReasonSignup Reason = "signup"
	ReasonForgot Reason = "forgot"
	ReasonOther  Reason = "other"
)

// Mailer hands a provisional secret to the user. Implementations return an
// error for delivery failures instead of panicking; the caller decides whether
// to surface it.
type Mailer interface {
	Send(ctx context.Context, toEmail, provisionalSecret string, reason Reason) error
}

// message renders the subject and plain text body for a reason.
func message(appName, secret string, reason Reason) (subject, body string) {
	switch reason {
	case ReasonSignup:
		subject = fmt.Sprintf("Welcome to %s", appName)
		body = fmt.Sprintf("Your account has been created.\n\nUse this temporary password to sign in for the first time:\n\n    %s\n\nIt becomes your password once you sign in. You can change it afterwards.\n", secret)
	case ReasonForgot:
		subject = fmt.Sprintf("%s password reset", appName)
		body = fmt.Sprintf("A password reset was requested for your account.\n\nSign in with this temporary password:\n\n    %s\n\nYour current password keeps working until you do. If you did not ask for this, ignore this email.\n", secret)
	default:
		subject = fmt.Sprintf("%s temporary password", appName)
		body = fmt.Sprintf("Your temporary password is:\n\n    %s\n", secret)
	}
	return subject, body
}
