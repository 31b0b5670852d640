// README: Payment service validation tests with a stub gateway.
package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rideline/internal/types"
)

type stubGateway struct {
	lastIntent  IntentRequest
	lastRefresh string
	calls       int
	err         error
}

func (g *stubGateway) CreateAccount(_ context.Context, req CreateAccountRequest) (*Account, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &Account{ID: "acct_1"}, nil
}

func (g *stubGateway) CreateAccountLink(_ context.Context, accountID, refreshURL, _ string) (*Link, error) {
	g.calls++
	g.lastRefresh = refreshURL
	return &Link{URL: "https://connect.example/" + accountID}, g.err
}

func (g *stubGateway) CreateLoginLink(_ context.Context, accountID string) (*Link, error) {
	g.calls++
	return &Link{URL: "https://login.example/" + accountID}, g.err
}

func (g *stubGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	g.calls++
	g.lastIntent = req
	if g.err != nil {
		return nil, g.err
	}
	return &Intent{ID: "pi_1", Status: "requires_payment_method", ClientSecret: "secret"}, nil
}

func (g *stubGateway) ConfirmIntent(_ context.Context, intentID, _ string) (*Intent, error) {
	g.calls++
	return &Intent{ID: intentID, Status: "succeeded"}, g.err
}

func TestCreateIntentValidation(t *testing.T) {
	g := &stubGateway{}
	svc := NewService(g, "https://r", "https://ret", nil)
	ctx := context.Background()

	cases := []IntentRequest{
		{Amount: types.Money{Amount: 0, Currency: "usd"}},
		{Amount: types.Money{Amount: 100, Currency: "us"}},
		{Amount: types.Money{Amount: 100, Currency: "usd"}, ApplicationFee: 100},
		{Amount: types.Money{Amount: 100, Currency: "usd"}, ApplicationFee: -1},
	}
	for _, req := range cases {
		_, err := svc.CreateIntent(ctx, req)
		assert.ErrorIs(t, err, ErrBadRequest, "%+v", req)
	}
	assert.Zero(t, g.calls)

	intent, err := svc.CreateIntent(ctx, IntentRequest{Amount: types.Money{Amount: 1250, Currency: "USD"}, RideID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "usd", g.lastIntent.Amount.Currency)
}

func TestAccountOperations(t *testing.T) {
	g := &stubGateway{}
	svc := NewService(g, "https://refresh", "https://return", nil)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, CreateAccountRequest{Email: "nope"})
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = svc.CreateAccount(ctx, CreateAccountRequest{Email: "d@example.com", Country: "USA"})
	assert.ErrorIs(t, err, ErrBadRequest)

	acct, err := svc.CreateAccount(ctx, CreateAccountRequest{Email: "d@example.com", Country: "US"})
	require.NoError(t, err)
	assert.Equal(t, "acct_1", acct.ID)

	link, err := svc.CreateAccountLink(ctx, "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "https://connect.example/acct_1", link.URL)
	assert.Equal(t, "https://refresh", g.lastRefresh)

	_, err = svc.CreateLoginLink(ctx, "")
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = svc.ConfirmIntent(ctx, "", "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestGatewayErrorPropagates(t *testing.T) {
	g := &stubGateway{err: errors.Join(ErrProvider, errors.New("card_declined"))}
	svc := NewService(g, "", "", nil)
	_, err := svc.CreateIntent(context.Background(), IntentRequest{Amount: types.Money{Amount: 100, Currency: "usd"}})
	assert.ErrorIs(t, err, ErrProvider)
}

func TestProviderErrorWrapsSentinel(t *testing.T) {
	err := providerError("create account", errors.New("boom"))
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "create account")
}
