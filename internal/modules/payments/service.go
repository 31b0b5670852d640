// README: Payment service validates input and forwards one call to the gateway.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rideline/internal/logging"
)

type Service struct {
	gateway    Gateway
	refreshURL string
	returnURL  string
	log        *slog.Logger
}

func NewService(g Gateway, refreshURL, returnURL string, log *slog.Logger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{gateway: g, refreshURL: refreshURL, returnURL: returnURL, log: log}
}

func (s *Service) CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error) {
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("%w: email is required", ErrBadRequest)
	}
	if req.Country != "" && len(req.Country) != 2 {
		return nil, fmt.Errorf("%w: country must be a 2-letter code", ErrBadRequest)
	}
	acct, err := s.gateway.CreateAccount(ctx, req)
	if err != nil {
		s.log.Error("create connected account", "error", err)
		return nil, err
	}
	s.log.Info("connected account created", "account_id", acct.ID)
	return acct, nil
}

func (s *Service) CreateAccountLink(ctx context.Context, accountID string) (*Link, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: accountId is required", ErrBadRequest)
	}
	link, err := s.gateway.CreateAccountLink(ctx, accountID, s.refreshURL, s.returnURL)
	if err != nil {
		s.log.Error("create account link", "account_id", accountID, "error", err)
		return nil, err
	}
	return link, nil
}

func (s *Service) CreateLoginLink(ctx context.Context, accountID string) (*Link, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: accountId is required", ErrBadRequest)
	}
	link, err := s.gateway.CreateLoginLink(ctx, accountID)
	if err != nil {
		s.log.Error("create login link", "account_id", accountID, "error", err)
		return nil, err
	}
	return link, nil
}

func (s *Service) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if !req.Amount.Valid() {
		return nil, fmt.Errorf("%w: amount must be positive with a 3-letter currency", ErrBadRequest)
	}
	if req.ApplicationFee < 0 || req.ApplicationFee >= req.Amount.Amount {
		return nil, fmt.Errorf("%w: applicationFee must be below amount", ErrBadRequest)
	}
	req.Amount.Currency = strings.ToLower(req.Amount.Currency)
	intent, err := s.gateway.CreateIntent(ctx, req)
	if err != nil {
		s.log.Error("create payment intent", "ride_id", req.RideID, "error", err)
		return nil, err
	}
	s.log.Info("payment intent created", "intent_id", intent.ID, "ride_id", req.RideID, "status", intent.Status)
	return intent, nil
}

func (s *Service) ConfirmIntent(ctx context.Context, intentID, paymentMethodID string) (*Intent, error) {
	if intentID == "" {
		return nil, fmt.Errorf("%w: intent id is required", ErrBadRequest)
	}
	intent, err := s.gateway.ConfirmIntent(ctx, intentID, paymentMethodID)
	if err != nil {
		s.log.Error("confirm payment intent", "intent_id", intentID, "error", err)
		return nil, err
	}
	return intent, nil
}
