// Package zibal adapts the Zibal gateway (JSON bodies, "merchant" credential, "trackId" ids).
package zibal

import (
	"strings"

	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/types"
)

const (
	Key            = "zibal"
	DefaultBaseURL = "https://gateway.zibal.ir"
)

// Card-invalid, insufficient-balance and invalid-track-id answers have no
// status of their own and are recorded as failed.
var errorMapping = map[int]types.Status{
	-1:  types.StatusWaitingForPayment,
	1:   types.StatusSuccessful,
	2:   types.StatusWaitingForBank,
	3:   types.StatusCanceledByUser,
	4:   types.StatusFailed,
	5:   types.StatusFailed,
	15:  types.StatusRefunded,
	100: types.StatusWaitingForPayment,
	102: types.StatusInvalidAPIKey,
	103: types.StatusInvalidAPIKey,
	104: types.StatusInvalidAPIKey,
	114: types.StatusCanceled,
	201: types.StatusSuccessful,
	202: types.StatusFailed,
	203: types.StatusFailed,
}

type Backend struct {
	gateway.Base
}

// New builds the adapter against baseURL; an empty baseURL selects DefaultBaseURL.
func New(baseURL string) *Backend {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	cfg := gateway.BaseConfig()
	cfg.Name = "Zibal"
	cfg.URLs = map[gateway.Endpoint]string{
		gateway.EndpointCreate:           base + "/request/lazy",
		gateway.EndpointAutoVerifyCreate: base + "/v1/request",
		gateway.EndpointVerify:           base + "/v1/verify",
		gateway.EndpointRedirect:         base + "/start/" + gateway.RedirectPlaceholder,
	}
	cfg.ErrorMapping = gateway.Codes(errorMapping)
	cfg.RequestFlags = append(cfg.RequestFlags, gateway.FlagCheckMobileNumber)
	cfg.APIKeyName = "merchant"
	cfg.TransactionIDKeyName = "trackId"
	cfg.StatusKeyName = "status"
	cfg.Encoding = gateway.EncodingJSON
	cfg = cfg.WithTranslations(map[string]string{
		gateway.FlagPhone:             "mobile",
		gateway.FlagAllowedCard:       "allowedCards",
		gateway.FlagNationalCode:      "nationalCode",
		gateway.FlagCheckMobileNumber: "checkMobileWithCard",
		gateway.FieldOrderID:          "orderId",
		gateway.FlagTrackingCode:      "refNumber",
		gateway.FieldCallbackURI:      "callbackUrl",
		gateway.FlagCardHolder:        "cardNumber",
	})

	return &Backend{Base: gateway.NewBase(Key, cfg)}
}

// Status reads "status" and falls back to "result" when it is absent or zero.
func (b *Backend) Status(payload map[string]any) (string, bool) {
	if code, ok := gateway.CodeString(payload["status"]); ok && code != "0" {
		return code, true
	}
	return gateway.CodeString(payload["result"])
}
