// README: Stripe implementation of the payment gateway.
package payments

import (
	"context"
	"fmt"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	params := &stripe.AccountParams{
		Type:  stripe.String(string(stripe.AccountTypeExpress)),
		Email: stripe.String(req.Email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	if req.Country != "" {
		params.Country = stripe.String(req.Country)
	}
	params.Context = ctx
	acct, err := g.api.Accounts.New(params)
	if err != nil {
		return nil, providerError("create account", err)
	}
	return &Account{ID: acct.ID, ChargesEnabled: acct.ChargesEnabled, PayoutsEnabled: acct.PayoutsEnabled}, nil
}

func (g *StripeGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*Link, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	}
	params.Context = ctx
	link, err := g.api.AccountLinks.New(params)
	if err != nil {
		return nil, providerError("create account link", err)
	}
	return &Link{URL: link.URL, ExpiresAt: link.ExpiresAt}, nil
}

func (g *StripeGateway) CreateLoginLink(ctx context.Context, accountID string) (*Link, error) {
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	link, err := g.api.LoginLinks.New(params)
	if err != nil {
		return nil, providerError("create login link", err)
	}
	return &Link{URL: link.URL}, nil
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount.Amount),
		Currency: stripe.String(req.Amount.Currency),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(req.PaymentMethodID)
	}
	if req.DestinationID != "" {
		params.TransferData = &stripe.PaymentIntentTransferDataParams{Destination: stripe.String(req.DestinationID)}
		if req.ApplicationFee > 0 {
			params.ApplicationFeeAmount = stripe.Int64(req.ApplicationFee)
		}
	}
	if req.ManualCapture {
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}
	if req.RideID != "" {
		params.AddMetadata("ride_id", string(req.RideID))
	}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, providerError("create payment intent", err)
	}
	return &Intent{ID: pi.ID, Status: string(pi.Status), ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	if paymentMethodID != "" {
		params.PaymentMethod = stripe.String(paymentMethodID)
	}
	params.Context = ctx
	pi, err := g.api.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		return nil, providerError("confirm payment intent", err)
	}
	return &Intent{ID: pi.ID, Status: string(pi.Status)}, nil
}

func providerError(op string, err error) error {
	if se, ok := err.(*stripe.Error); ok && se.Msg != "" {
		return fmt.Errorf("%w: %s: %s", ErrProvider, op, se.Msg)
	}
	return fmt.Errorf("%w: %s: %v", ErrProvider, op, err)
}
