package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/pkg/types"
)

var cardNumberPattern = regexp.MustCompile(`^\d{16}$`)

// UserAttributes exposes application user data to request flag resolution.
type UserAttributes interface {
	Attribute(name string) (any, bool)
}

// UserProfile is the default UserAttributes implementation.
type UserProfile struct {
	ID           string
	Phone        string
	FullName     string
	NationalCode string
	Extra        map[string]any
	// Getters compute attributes on demand; consulted after the plain fields.
	Getters map[string]func() (any, bool)
}

func (u *UserProfile) Attribute(name string) (any, bool) {
	if u == nil {
		return nil, false
	}
	switch name {
	case FlagPhone:
		if u.Phone != "" {
			return u.Phone, true
		}
	case FlagFullName:
		if u.FullName != "" {
			return u.FullName, true
		}
	case FlagNationalCode:
		if u.NationalCode != "" {
			return u.NationalCode, true
		}
	}
	if v, ok := u.Extra[name]; ok && v != nil {
		return v, true
	}
	if g, ok := u.Getters[name]; ok && g != nil {
		return g()
	}
	return nil, false
}

// CreateRequest carries everything an adapter may read while building a create request.
type CreateRequest struct {
	Transaction *models.Transaction
	Portal      *models.Portal
	CallbackURI string
	// Flags are call-time overrides; they win over transaction and user attributes.
	Flags map[string]any
	User  UserAttributes
}

// Resolve looks a flag up in the overrides, then the transaction, then the user.
func (r *CreateRequest) Resolve(flag string) (any, bool) {
	if v, ok := r.Flags[flag]; ok && v != nil {
		return v, true
	}
	if r.Transaction != nil {
		if v, ok := r.Transaction.Attribute(flag); ok {
			return v, true
		}
	}
	if r.User != nil {
		return r.User.Attribute(flag)
	}
	return nil, false
}

// Backend is the contract every gateway adapter fulfils. Embed Base for the defaults.
type Backend interface {
	// Key is the stable registry identifier stored on portals.
	Key() string
	Config() *Config
	Headers(portal *models.Portal) http.Header
	// ValidateFlags rejects malformed call-time flags before any network call.
	ValidateFlags(flags map[string]any) error
	// CreateContext returns the adapter-specific fields of a create request under their wire names.
	CreateContext(req *CreateRequest) (map[string]any, error)
	VerifyContext(tx *models.Transaction, portal *models.Portal) map[string]any
	RefundContext(tx *models.Transaction, portal *models.Portal) (map[string]any, error)
	// Status extracts the native status code from a response payload.
	Status(payload map[string]any) (string, bool)
	// ApplyVerifyResult copies receiving flags from a verify/refund payload into tx.
	ApplyVerifyResult(tx *models.Transaction, status types.Status, payload map[string]any) error
}

// Base implements Backend with the behaviour most gateways share.
type Base struct {
	key string
	cfg Config
}

func NewBase(key string, cfg Config) Base {
	return Base{key: key, cfg: cfg}
}

func (b *Base) Key() string     { return b.key }
func (b *Base) Config() *Config { return &b.cfg }

func (b *Base) Headers(_ *models.Portal) http.Header {
	return http.Header{}
}

func (b *Base) ValidateFlags(flags map[string]any) error {
	v, ok := flags[FlagAllowedCard]
	if !ok || v == nil {
		return nil
	}
	cards, err := cardList(v)
	if err != nil {
		return err
	}
	for _, c := range cards {
		if !cardNumberPattern.MatchString(c) {
			return fmt.Errorf("%w: enter a valid card number", ErrInvalidFlag)
		}
	}
	return nil
}

func (b *Base) CreateContext(req *CreateRequest) (map[string]any, error) {
	out := make(map[string]any, len(b.cfg.RequestFlags))
	for _, flag := range b.cfg.RequestFlags {
		v, ok := req.Resolve(flag)
		if !ok {
			continue
		}
		out[b.cfg.Translate(flag)] = v
	}
	return out, nil
}

func (b *Base) VerifyContext(tx *models.Transaction, portal *models.Portal) map[string]any {
	return map[string]any{
		b.cfg.APIKeyName:               portal.APIKey,
		b.cfg.TransactionIDKeyName:     tx.GatewayID(),
		b.cfg.Translate(FieldAmount):   tx.Amount,
		b.cfg.Translate(FieldCurrency): tx.Currency,
	}
}

func (b *Base) RefundContext(_ *models.Transaction, _ *models.Portal) (map[string]any, error) {
	return map[string]any{}, nil
}

func (b *Base) Status(payload map[string]any) (string, bool) {
	return CodeString(payload[b.cfg.StatusKeyName])
}

func (b *Base) ApplyVerifyResult(tx *models.Transaction, _ types.Status, payload map[string]any) error {
	return CopyReceivingFlags(&b.cfg, tx, payload)
}

// CopyReceivingFlags writes every receiving flag present in payload onto tx.
// Malformed values are skipped and reported in the returned error.
func CopyReceivingFlags(cfg *Config, tx *models.Transaction, payload map[string]any) error {
	var errs []error
	for _, flag := range cfg.ReceivingFlags {
		v, ok := cfg.Lookup(payload, flag)
		if !ok {
			continue
		}
		raw := ValueString(v)
		switch flag {
		case FlagCardHolder:
			card, err := models.NormalizeCardHolder(raw)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			tx.CardHolder = card
		case FlagTrackingCode:
			code, err := models.NormalizeTrackingCode(raw)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			tx.TrackingCode = code
		default:
			if tx.Other == nil {
				tx.Other = map[string]any{}
			}
			tx.Other[flag] = v
		}
	}
	return errors.Join(errs...)
}

// IsTruthy interprets flag values such as true, "1", "yes" and 1.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

func cardList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		parts := strings.Split(t, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			out = append(out, ValueString(it))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: allowed_card must be a string or a list", ErrInvalidFlag)
	}
}
