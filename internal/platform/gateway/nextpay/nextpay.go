// Package nextpay adapts the Nextpay gateway (form-encoded, numeric "code" statuses).
package nextpay

import (
	"net/http"
	"strings"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/internal/platform/gateway"
	"github.com/fatflowers/payportal/pkg/types"
)

const (
	Key            = "nextpay"
	DefaultBaseURL = "https://nextpay.org/nx/gateway"

	userAgent = "PostmanRuntime/7.26.8"
)

var errorMapping = map[int]types.Status{
	0:   types.StatusSuccessful,
	-1:  types.StatusWaitingForPayment,
	-2:  types.StatusCanceledByUser,
	-3:  types.StatusWaitingForBank,
	-4:  types.StatusCanceledByUser,
	-90: types.StatusRefunded,
	-91: types.StatusRefundFailed,
	-92: types.StatusRefundFailed,
	-93: types.StatusRefundFailedInsufficientFund,
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
	cfg.Name = "Nextpay"
	cfg.URLs = map[gateway.Endpoint]string{
		gateway.EndpointCreate:   base + "/token",
		gateway.EndpointVerify:   base + "/verify",
		gateway.EndpointRefund:   base + "/verify",
		gateway.EndpointRedirect: base + "/payment/" + gateway.RedirectPlaceholder,
	}
	cfg.ErrorMapping = gateway.Codes(errorMapping)
	cfg.RequestFlags = []string{gateway.FlagPhone, gateway.FlagFullName, gateway.FlagAutoVerify}
	cfg = cfg.WithTranslations(map[string]string{
		gateway.FlagPhone:        "customer_phone",
		gateway.FlagFullName:     "payer_name",
		gateway.FlagTrackingCode: "Shaparak_Ref_Id",
	})

	return &Backend{Base: gateway.NewBase(Key, cfg)}
}

func (b *Backend) Headers(_ *models.Portal) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	return h
}

// CreateContext sends the payer identity; auto_verify only travels when set.
func (b *Backend) CreateContext(req *gateway.CreateRequest) (map[string]any, error) {
	out, err := b.Base.CreateContext(req)
	if err != nil {
		return nil, err
	}
	key := b.Config().Translate(gateway.FlagAutoVerify)
	if v, ok := out[key]; ok && !gateway.IsTruthy(v) {
		delete(out, key)
	}
	return out, nil
}

func (b *Backend) RefundContext(tx *models.Transaction, portal *models.Portal) (map[string]any, error) {
	ctx := b.VerifyContext(tx, portal)
	ctx["refund_request"] = "yes_money_back"
	return ctx, nil
}

// ApplyVerifyResult copies card holder and tracking code only from a successful verify.
func (b *Backend) ApplyVerifyResult(tx *models.Transaction, status types.Status, payload map[string]any) error {
	if status != types.StatusSuccessful {
		return nil
	}
	return gateway.CopyReceivingFlags(b.Config(), tx, payload)
}
