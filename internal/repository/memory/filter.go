package memory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatflowers/payportal/internal/models"
	"github.com/fatflowers/payportal/pkg/types"
)

// column returns the value of a filterable column, or nil for NULL.
func column(tx *models.Transaction, name string) any {
	switch name {
	case "id":
		return tx.ID
	case "portal_code":
		return tx.PortalCode
	case "user_id":
		return deref(tx.UserID)
	case "linked_type":
		return deref(tx.LinkedType)
	case "linked_id":
		return deref(tx.LinkedID)
	case "amount":
		return tx.Amount
	case "currency":
		return tx.Currency
	case "transaction_id":
		return deref(tx.TransactionID)
	case "card_holder":
		return tx.CardHolder
	case "tracking_code":
		return tx.TrackingCode
	case "status":
		return string(tx.Status)
	case "created_at":
		return tx.CreatedAt
	case "create_transaction_at":
		return deref(tx.CreateTransactionAt)
	case "last_verify_at":
		return deref(tx.LastVerifyAt)
	case "updated_at":
		return tx.UpdatedAt
	}
	return nil
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func matchFilter(tx *models.Transaction, f *types.CommonFilter) bool {
	var v any
	if key, ok := f.JSONKey(); ok {
		raw, ok := tx.Other[key]
		if !ok || raw == nil {
			return false
		}
		v = fmt.Sprint(raw)
	} else {
		v = column(tx, f.Field)
	}

	switch f.Operator {
	case types.CommonFilterOperatorEq:
		c, ok := compare(v, f.Values[0])
		return ok && c == 0
	case types.CommonFilterOperatorNotEq:
		c, ok := compare(v, f.Values[0])
		return !ok || c != 0
	case types.CommonFilterOperatorLt:
		c, ok := compare(v, f.Values[0])
		return ok && c < 0
	case types.CommonFilterOperatorLte:
		c, ok := compare(v, f.Values[0])
		return ok && c <= 0
	case types.CommonFilterOperatorGt:
		c, ok := compare(v, f.Values[0])
		return ok && c > 0
	case types.CommonFilterOperatorGte:
		c, ok := compare(v, f.Values[0])
		return ok && c >= 0
	case types.CommonFilterOperatorRange, types.CommonFilterOperatorDateRange:
		low, ok1 := compare(v, f.Values[0])
		high, ok2 := compare(v, f.Values[1])
		return ok1 && ok2 && low >= 0 && high <= 0
	case types.CommonFilterOperatorIn:
		for _, want := range f.Values {
			if c, ok := compare(v, want); ok && c == 0 {
				return true
			}
		}
	}
	return false
}

// compare orders a column value against a filter value decoded from JSON or
// passed from Go. ok is false for NULL columns and incomparable values.
func compare(col, val any) (int, bool) {
	switch c := col.(type) {
	case nil:
		return 0, false
	case int64:
		n, ok := toInt(val)
		if !ok {
			return 0, false
		}
		return compareInts(c, n), true
	case time.Time:
		t, ok := toTime(val)
		if !ok {
			return 0, false
		}
		return c.Compare(t), true
	default:
		return strings.Compare(fmt.Sprint(c), fmt.Sprint(val)), true
	}
}

func compareColumn(a, b *models.Transaction, name string) int {
	av, bv := column(a, name), column(b, name)
	switch {
	case av == nil && bv == nil:
		return 0
	case av == nil:
		return -1
	case bv == nil:
		return 1
	}
	c, _ := compare(av, bv)
	return c
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
