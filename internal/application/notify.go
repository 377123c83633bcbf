package application

import "context"

// Outcome reports the result of a best-effort side effect. A failed outcome
// carries the reason; it is logged by the service and never fails the
// operation that triggered it.
type Outcome struct {
	Name string
	Err  error
}

func (o Outcome) Sent() bool { return o.Err == nil }

// Notifier is the notification surface consumed during sign-up. Both calls
// are fire-and-log: no retries, and failures never block account creation.
type Notifier interface {
	SendWelcome(ctx context.Context, email, name string) Outcome
	SubscribeSignupList(ctx context.Context, email string) Outcome
}
