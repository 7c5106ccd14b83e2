package adapter

import "context"

// Mailer is the outbound email collaborator. Delivery is out of scope for the
// core; the default implementation only logs.
type Mailer interface {
	SendValidationLink(ctx context.Context, email, username, link string) error
	SendPasswordResetLink(ctx context.Context, email, username, link string) error
}
