package portal

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/internal/platform/gateway/backends"
	"github.com/fatflowers/payportal/internal/repository/memory"
	"github.com/fatflowers/payportal/pkg/config"
	"github.com/fatflowers/payportal/pkg/types"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	reg := gateway.NewRegistry()
	require.NoError(t, backends.RegisterAll(reg, &config.Config{}))
	store := memory.New()
	return NewService(store, reg, nil), store
}

func validInput() *Input {
	return &Input{
		CodeName:        "shop",
		Name:            "Shop",
		Backend:         "nextpay",
		APIKey:          "np-key",
		DefaultCurrency: lo.ToPtr("IRR"),
	}
}

func TestService_Backends(t *testing.T) {
	s, _ := newService(t)
	keys := lo.Map(s.Backends(), func(c gateway.Choice, _ int) string { return c.Key })
	require.Equal(t, []string{"nextpay", "zibal"}, keys)
}

func TestService_CreateAndGet(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	p, err := s.Create(ctx, validInput())
	require.NoError(t, err)
	require.Equal(t, "shop", p.CodeName)

	got, err := s.Get(ctx, "shop")
	require.NoError(t, err)
	require.Equal(t, "np-key", got.APIKey)
	require.Equal(t, "IRR", *got.DefaultCurrency)

	_, err = s.Create(ctx, validInput())
	require.ErrorIs(t, err, ErrExists)

	_, err = s.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateValidation(t *testing.T) {
	s, _ := newService(t)
	cases := map[string]func(in *Input){
		"bad code name":   func(in *Input) { in.CodeName = "Shop Front" },
		"empty name":      func(in *Input) { in.Name = "  " },
		"unknown backend": func(in *Input) { in.Backend = "paypal" },
		"missing api key": func(in *Input) { in.APIKey = "" },
		"negative step":   func(in *Input) { in.AmountStep = -10 },
		"long currency":   func(in *Input) { in.DefaultCurrency = lo.ToPtr("DOLLARS-US") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(in)
			_, err := s.Create(context.Background(), in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestService_UpdateKeepsAPIKeyWhenOmitted(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	_, err := s.Create(ctx, validInput())
	require.NoError(t, err)

	p, err := s.Update(ctx, "shop", &Input{
		CodeName:        "ignored",
		Name:            "Shop v2",
		Backend:         "zibal",
		AmountStep:      500,
		DefaultCurrency: lo.ToPtr(""),
	})
	require.NoError(t, err)
	require.Equal(t, "shop", p.CodeName)

	got, err := s.Get(ctx, "shop")
	require.NoError(t, err)
	require.Equal(t, "Shop v2", got.Name)
	require.Equal(t, "zibal", got.Backend)
	require.Equal(t, "np-key", got.APIKey)
	require.Equal(t, int64(500), got.AmountStep)
	require.Nil(t, got.DefaultCurrency)

	_, err = s.Update(ctx, "missing", validInput())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_DeleteRestrictedByTransactions(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()
	_, err := s.Create(ctx, validInput())
	require.NoError(t, err)
	require.NoError(t, store.CreateTransaction(ctx, &models.Transaction{
		ID: 1, PortalCode: "shop", Amount: 1000, Currency: "IRR", Status: types.StatusWaitingForPayment,
	}))

	require.ErrorIs(t, s.Delete(ctx, "shop"), ErrInUse)

	require.NoError(t, store.DeleteTransaction(ctx, 1))
	require.NoError(t, s.Delete(ctx, "shop"))
	require.ErrorIs(t, s.Delete(ctx, "shop"), ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}
