// Package billing defines the payment processor surface the account service
// depends on, plus the Stripe implementation.
package billing

import (
	"context"
	"time"
)

// Customer is the remote customer record as reported by the processor.
type Customer struct {
	ID              string
	CreatedAt       time.Time
	Currency        string
	DefaultSourceID string
	Description     string
}

// Method is the processor's view of a single payment method.
type Method struct {
	ID       string
	Brand    string
	Funding  string
	Country  string
	Last4    string
	ExpMonth int64
	ExpYear  int64
}

// Gateway is the processor contract. Calls are not idempotent: retrying a
// timed-out CreateCustomer can create a duplicate remote customer. Callers
// needing exactly-once semantics must add an idempotency key at this
// boundary.
type Gateway interface {
	CreateCustomer(ctx context.Context, token, email, accountID string) (*Customer, error)
	RetrievePaymentMethod(ctx context.Context, customerID, methodID string) (*Method, error)
	CreatePaymentMethod(ctx context.Context, customerID, token string) (*Method, error)
	UpdateCustomerDefaultMethod(ctx context.Context, customerID, methodID string) (*Customer, error)
}
