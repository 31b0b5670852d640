// README: Payment passthrough types: connected accounts, links and intents.
package payments

import (
	"context"
	"errors"

	"rideline/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	ErrProvider   = errors.New("payment provider error")
)

type CreateAccountRequest struct {
	Email   string `json:"email"`
	Country string `json:"country"`
}

type Account struct {
	ID             string `json:"id"`
	ChargesEnabled bool   `json:"chargesEnabled"`
	PayoutsEnabled bool   `json:"payoutsEnabled"`
}

type Link struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt,omitempty"`
}

type IntentRequest struct {
	Amount          types.Money `json:"amount"`
	CustomerID      string      `json:"customerId,omitempty"`
	PaymentMethodID string      `json:"paymentMethodId,omitempty"`
	DestinationID   string      `json:"destinationAccountId,omitempty"`
	ApplicationFee  int64       `json:"applicationFee,omitempty"`
	RideID          types.ID    `json:"rideId,omitempty"`
	ManualCapture   bool        `json:"manualCapture,omitempty"`
}

type Intent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

// Gateway is the payment provider. Every call is one provider request.
type Gateway interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (*Link, error)
	CreateLoginLink(ctx context.Context, accountID string) (*Link, error)
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error)
}
