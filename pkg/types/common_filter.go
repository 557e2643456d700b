package types

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"gorm.io/gorm/clause"
)

type CommonFilterOperator string

const (
	CommonFilterOperatorEq        CommonFilterOperator = "eq"
	CommonFilterOperatorNotEq     CommonFilterOperator = "not_eq"
	CommonFilterOperatorLt        CommonFilterOperator = "lt"
	CommonFilterOperatorLte       CommonFilterOperator = "lte"
	CommonFilterOperatorGt        CommonFilterOperator = "gt"
	CommonFilterOperatorGte       CommonFilterOperator = "gte"
	CommonFilterOperatorDateRange CommonFilterOperator = "date_range"
	CommonFilterOperatorRange     CommonFilterOperator = "range"
	CommonFilterOperatorIn        CommonFilterOperator = "in"
)

// jsonFieldPattern matches keys of the transaction "other" document, e.g. other->>'rrn'.
var jsonFieldPattern = regexp.MustCompile(`^other->>'([A-Za-z0-9_]+)'$`)

type CommonFilter struct {
	Field    string               `json:"field"`
	Operator CommonFilterOperator `json:"operator"`
	Values   []any                `json:"values"`
}

// JSONKey returns the document key when Field addresses the "other" column.
func (f *CommonFilter) JSONKey() (string, bool) {
	m := jsonFieldPattern.FindStringSubmatch(f.Field)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Validate rejects fields outside columns and malformed operator/value pairs.
// Field names end up in SQL, so nothing else may pass.
func (f *CommonFilter) Validate(columns []string) error {
	if _, ok := f.JSONKey(); ok {
		if f.Operator != CommonFilterOperatorEq || len(f.Values) != 1 {
			return fmt.Errorf("field %q only supports eq", f.Field)
		}
		return nil
	}
	if !slices.Contains(columns, f.Field) {
		return fmt.Errorf("field %q is not filterable", f.Field)
	}
	switch f.Operator {
	case CommonFilterOperatorEq, CommonFilterOperatorNotEq,
		CommonFilterOperatorLt, CommonFilterOperatorLte,
		CommonFilterOperatorGt, CommonFilterOperatorGte:
		if len(f.Values) != 1 {
			return fmt.Errorf("operator %s takes one value", f.Operator)
		}
	case CommonFilterOperatorRange, CommonFilterOperatorDateRange:
		if len(f.Values) != 2 {
			return fmt.Errorf("operator %s takes two values", f.Operator)
		}
	case CommonFilterOperatorIn:
		if len(f.Values) == 0 {
			return fmt.Errorf("operator in takes at least one value")
		}
	default:
		return fmt.Errorf("unknown operator %q", f.Operator)
	}
	return nil
}

// Build constructs a GORM expression.
func (f *CommonFilter) Build(builder clause.Builder) {
	if len(f.Values) == 0 {
		return
	}

	value := f.Values[0]

	switch f.Operator {
	case CommonFilterOperatorEq:
		if strings.Contains(f.Field, "->") {
			clause.Expr{SQL: fmt.Sprintf("%s = ?", f.Field), Vars: []interface{}{fmt.Sprint(value)}}.Build(builder)
		} else {
			clause.Eq{Column: f.Field, Value: value}.Build(builder)
		}
	case CommonFilterOperatorNotEq:
		clause.NotConditions{Exprs: []clause.Expression{clause.Eq{Column: f.Field, Value: value}}}.Build(builder)
	case CommonFilterOperatorLt:
		clause.Lt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorLte:
		clause.Lte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGt:
		clause.Gt{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorGte:
		clause.Gte{Column: f.Field, Value: value}.Build(builder)
	case CommonFilterOperatorRange, CommonFilterOperatorDateRange:
		if len(f.Values) < 2 {
			return
		}

		clause.And(clause.Gte{Column: f.Field, Value: f.Values[0]}, clause.Lte{Column: f.Field, Value: f.Values[1]}).Build(builder)
	case CommonFilterOperatorIn:
		clause.IN{Column: f.Field, Values: f.Values}.Build(builder)
	default:
		return
	}
}

// FiltersAnd combines filters into a single conjunction.
type FiltersAnd []*CommonFilter

func (w FiltersAnd) Build(builder clause.Builder) {
	if len(w) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w))
	for _, f := range w {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}
