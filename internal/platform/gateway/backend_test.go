package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/pkg/types"
)

func TestCreateRequest_ResolveOrder(t *testing.T) {
	desc := "from transaction"
	req := &CreateRequest{
		Transaction: &models.Transaction{Description: &desc, Other: map[string]any{FlagPhone: "0912-tx"}},
		Flags:       map[string]any{FlagFullName: "Override Name"},
		User: &UserProfile{
			Phone:    "0912-user",
			FullName: "User Name",
			Getters: map[string]func() (any, bool){
				FlagNationalCode: func() (any, bool) { return "0012345678", true },
			},
		},
	}

	v, ok := req.Resolve(FlagFullName)
	require.True(t, ok)
	require.Equal(t, "Override Name", v)

	v, ok = req.Resolve(FlagPhone)
	require.True(t, ok)
	require.Equal(t, "0912-tx", v)

	v, ok = req.Resolve(FlagNationalCode)
	require.True(t, ok)
	require.Equal(t, "0012345678", v)

	v, ok = req.Resolve(FlagDescription)
	require.True(t, ok)
	require.Equal(t, desc, v)

	_, ok = req.Resolve(FlagAllowedCard)
	require.False(t, ok)
}

func TestBase_ValidateFlags(t *testing.T) {
	b := NewBase("t", BaseConfig())

	require.NoError(t, b.ValidateFlags(nil))
	require.NoError(t, b.ValidateFlags(map[string]any{FlagAllowedCard: "6037991234567890"}))
	require.NoError(t, b.ValidateFlags(map[string]any{FlagAllowedCard: []any{"6037991234567890", "5022291234567890"}}))
	require.ErrorIs(t, b.ValidateFlags(map[string]any{FlagAllowedCard: "6037-9912"}), ErrInvalidFlag)
	require.ErrorIs(t, b.ValidateFlags(map[string]any{FlagAllowedCard: 42}), ErrInvalidFlag)
}

func TestBase_VerifyContextUsesConfiguredKeys(t *testing.T) {
	cfg := BaseConfig()
	cfg.APIKeyName = "merchant"
	cfg.TransactionIDKeyName = "trackId"
	b := NewBase("t", cfg)

	gid := "abc"
	ctx := b.VerifyContext(
		&models.Transaction{TransactionID: &gid, Amount: 5000, Currency: "IRR"},
		&models.Portal{APIKey: "secret"},
	)
	require.Equal(t, map[string]any{"merchant": "secret", "trackId": "abc", "amount": int64(5000), "currency": "IRR"}, ctx)
}

func TestCopyReceivingFlags(t *testing.T) {
	cfg := BaseConfig().WithTranslations(map[string]string{FlagTrackingCode: "ref"})
	cfg.ReceivingFlags = append(cfg.ReceivingFlags, "rrn")
	tx := &models.Transaction{}

	err := CopyReceivingFlags(&cfg, tx, map[string]any{
		FlagCardHolder: "603799******1234",
		"ref":          "123456",
		"rrn":          "998877",
	})
	require.NoError(t, err)
	require.Equal(t, "6037-99**-****-1234", tx.CardHolder)
	require.Equal(t, "123456", tx.TrackingCode)
	require.Equal(t, "998877", tx.Other["rrn"])

	other := &models.Transaction{}
	err = CopyReceivingFlags(&cfg, other, map[string]any{FlagCardHolder: "bad", "ref": "77"})
	require.Error(t, err)
	require.Empty(t, other.CardHolder)
	require.Equal(t, "77", other.TrackingCode)
}

func TestPaymentError_Messages(t *testing.T) {
	hard := HardFailure("102", types.StatusInvalidAPIKey)
	require.Equal(t, types.StatusInvalidAPIKey.FailMessage(), hard.Error())

	notOK := NotOK(&Response{StatusCode: 502}, nil)
	require.ErrorIs(t, notOK, ErrGatewayUnavailable)
	require.Equal(t, "http_502", notOK.Code)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []any{true, "1", "yes", 1, int64(2), 0.5} {
		require.True(t, IsTruthy(v), "%v", v)
	}
	for _, v := range []any{nil, false, "", "0", "false", "No", 0} {
		require.False(t, IsTruthy(v), "%v", v)
	}
}
