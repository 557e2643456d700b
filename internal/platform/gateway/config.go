package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatflowers/payportal/pkg/types"
)

// Endpoint names a semantic gateway URL.
type Endpoint string

const (
	EndpointCreate           Endpoint = "CREATE"
	EndpointAutoVerifyCreate Endpoint = "AUTO_VERIFY_CREATE"
	EndpointVerify           Endpoint = "VERIFY"
	EndpointRefund           Endpoint = "REFUND"
	// EndpointRedirect is a template containing RedirectPlaceholder.
	EndpointRedirect Endpoint = "REDIRECT"
)

const RedirectPlaceholder = "{transaction_id}"

// Encoding is the request body format a gateway accepts.
type Encoding string

const (
	EncodingForm Encoding = "form"
	EncodingJSON Encoding = "json"
)

// Logical field and flag names. Adapters translate them to their wire names.
const (
	FieldOrderID     = "order_id"
	FieldAmount      = "amount"
	FieldCallbackURI = "callback_uri"
	FieldCurrency    = "currency"

	FlagDescription       = "description"
	FlagPhone             = "phone"
	FlagFullName          = "full_name"
	FlagNationalCode      = "national_code"
	FlagAllowedCard       = "allowed_card"
	FlagCheckMobileNumber = "check_mobile_number"
	FlagAutoVerify        = "auto_verify"

	FlagCardHolder   = "card_holder"
	FlagTrackingCode = "shaparak_tracking_code"
)

// Config is the static description of a gateway dialect.
type Config struct {
	Name string
	URLs map[Endpoint]string
	// ErrorMapping maps native status codes, normalized with CodeString, to lifecycle statuses.
	ErrorMapping map[string]types.Status
	// Translations maps logical names to wire names; names without an entry are sent as-is.
	Translations map[string]string
	// RequestFlags are resolved and sent with create requests.
	RequestFlags []string
	// ReceivingFlags are copied from verify/refund responses into the transaction.
	ReceivingFlags       []string
	APIKeyName           string
	TransactionIDKeyName string
	StatusKeyName        string
	Encoding             Encoding
}

// BaseConfig returns a fresh default configuration for adapters to extend.
func BaseConfig() Config {
	return Config{
		URLs:         map[Endpoint]string{},
		ErrorMapping: map[string]types.Status{},
		Translations: map[string]string{},
		RequestFlags: []string{
			FlagDescription,
			FlagPhone,
			FlagFullName,
			FlagNationalCode,
			FlagAllowedCard,
			FlagAutoVerify,
		},
		ReceivingFlags:       []string{FlagCardHolder, FlagTrackingCode},
		APIKeyName:           "api_key",
		TransactionIDKeyName: "trans_id",
		StatusKeyName:        "code",
		Encoding:             EncodingForm,
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.URLs = make(map[Endpoint]string, len(c.URLs))
	for k, v := range c.URLs {
		out.URLs[k] = v
	}
	out.ErrorMapping = make(map[string]types.Status, len(c.ErrorMapping))
	for k, v := range c.ErrorMapping {
		out.ErrorMapping[k] = v
	}
	out.Translations = make(map[string]string, len(c.Translations))
	for k, v := range c.Translations {
		out.Translations[k] = v
	}
	out.RequestFlags = append([]string(nil), c.RequestFlags...)
	out.ReceivingFlags = append([]string(nil), c.ReceivingFlags...)
	return out
}

// WithTranslations returns a copy of c with extra translations layered on top.
func (c Config) WithTranslations(extra map[string]string) Config {
	out := c.Clone()
	for k, v := range extra {
		out.Translations[k] = v
	}
	return out
}

// Translate returns the wire name of a logical field or flag.
func (c *Config) Translate(name string) string {
	if wire, ok := c.Translations[name]; ok && wire != "" {
		return wire
	}
	return name
}

// Lookup reads a logical field from a gateway payload using its wire name.
func (c *Config) Lookup(payload map[string]any, name string) (any, bool) {
	v, ok := payload[c.Translate(name)]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (c *Config) URL(e Endpoint) (string, bool) {
	u, ok := c.URLs[e]
	return u, ok && u != ""
}

func (c *Config) SupportRefund() bool {
	_, ok := c.URL(EndpointRefund)
	return ok
}

// MapStatus maps a native code; ok is false when the code is unmapped.
func (c *Config) MapStatus(code string) (types.Status, bool) {
	s, ok := c.ErrorMapping[code]
	return s, ok
}

// Validate checks that translations stay injective over every name sent or received,
// so translating a name and reading it back from a payload yields the same logical field.
func (c *Config) Validate() error {
	if _, ok := c.URL(EndpointCreate); !ok {
		return fmt.Errorf("%w: %s has no %s endpoint", ErrNotImplemented, c.Name, EndpointCreate)
	}
	names := append([]string{FieldOrderID, FieldAmount, FieldCallbackURI, FieldCurrency}, c.RequestFlags...)
	names = append(names, c.ReceivingFlags...)
	seen := make(map[string]string, len(names))
	for _, n := range names {
		wire := c.Translate(n)
		if other, dup := seen[wire]; dup && other != n {
			return fmt.Errorf("%s: %q and %q both translate to %q", c.Name, other, n, wire)
		}
		if wire == c.APIKeyName || wire == c.TransactionIDKeyName {
			return fmt.Errorf("%s: %q collides with a credential or id field", c.Name, n)
		}
		seen[wire] = n
	}
	return nil
}

// Codes converts an integer-keyed mapping to the normalized string form.
func Codes(m map[int]types.Status) map[string]types.Status {
	out := make(map[string]types.Status, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

// CodeString normalizes a status code decoded from a gateway payload.
func CodeString(v any) (string, bool) {
	switch c := v.(type) {
	case nil:
		return "", false
	case string:
		return c, c != ""
	case json.Number:
		return c.String(), true
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64), true
	case int:
		return strconv.Itoa(c), true
	case int64:
		return strconv.FormatInt(c, 10), true
	case bool:
		return strconv.FormatBool(c), true
	default:
		return fmt.Sprint(c), true
	}
}

// ValueString renders a payload value as a plain string.
func ValueString(v any) string {
	s, _ := CodeString(v)
	return s
}
