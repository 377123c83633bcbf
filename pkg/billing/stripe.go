package billing

import (
	"context"
	"time"

	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeGateway implements Gateway against the Stripe API. The payment-method
// token is the pm_ id minted by Stripe's client-side tooling.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, token, email, accountID string) (*Customer, error) {
	params := &stripe.CustomerParams{
		Email:         stripe.String(email),
		Description:   stripe.String("teamdeck account " + accountID),
		PaymentMethod: stripe.String(token),
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(token),
		},
	}
	params.Context = ctx
	params.AddMetadata("account_id", accountID)

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return nil, err
	}
	return customerFromStripe(cust), nil
}

func (g *StripeGateway) RetrievePaymentMethod(ctx context.Context, customerID, methodID string) (*Method, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := g.api.PaymentMethods.Get(methodID, params)
	if err != nil {
		return nil, err
	}
	return methodFromStripe(pm), nil
}

func (g *StripeGateway) CreatePaymentMethod(ctx context.Context, customerID, token string) (*Method, error) {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	pm, err := g.api.PaymentMethods.Attach(token, params)
	if err != nil {
		return nil, err
	}
	return methodFromStripe(pm), nil
}

func (g *StripeGateway) UpdateCustomerDefaultMethod(ctx context.Context, customerID, methodID string) (*Customer, error) {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(methodID),
		},
	}
	params.Context = ctx

	cust, err := g.api.Customers.Update(customerID, params)
	if err != nil {
		return nil, err
	}
	return customerFromStripe(cust), nil
}

func customerFromStripe(c *stripe.Customer) *Customer {
	out := &Customer{
		ID:          c.ID,
		CreatedAt:   time.Unix(c.Created, 0).UTC(),
		Currency:    string(c.Currency),
		Description: c.Description,
	}
	if c.InvoiceSettings != nil && c.InvoiceSettings.DefaultPaymentMethod != nil {
		out.DefaultSourceID = c.InvoiceSettings.DefaultPaymentMethod.ID
	}
	return out
}

func methodFromStripe(pm *stripe.PaymentMethod) *Method {
	out := &Method{ID: pm.ID}
	if pm.Card != nil {
		out.Brand = string(pm.Card.Brand)
		out.Funding = string(pm.Card.Funding)
		out.Country = pm.Card.Country
		out.Last4 = pm.Card.Last4
		out.ExpMonth = pm.Card.ExpMonth
		out.ExpYear = pm.Card.ExpYear
	}
	return out
}

var _ Gateway = (*StripeGateway)(nil)
