package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"spendsense/domain"

	"github.com/shopspring/decimal"
)

type ValidationKind string

const (
	KindMissingField ValidationKind = "missing_field"
	KindTypeMismatch ValidationKind = "type_mismatch"
	KindOutOfRange   ValidationKind = "out_of_range"
	KindTooLong      ValidationKind = "too_long"
)

var (
	ErrMissingField = errors.New("missing field")
	ErrTypeMismatch = errors.New("type mismatch")
	ErrOutOfRange   = errors.New("value out of range")
	ErrTooLong      = errors.New("value too long")
)

// ValidationError describes the first problem found in an evaluation input.
// Message is user facing and returned verbatim in reports.
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	switch e.Kind {
	case KindMissingField:
		return target == ErrMissingField
	case KindTypeMismatch:
		return target == ErrTypeMismatch
	case KindOutOfRange:
		return target == ErrOutOfRange
	case KindTooLong:
		return target == ErrTooLong
	}
	return false
}

const (
	fieldMonthlyIncome = "monthly_income"
	fieldFixedExpenses = "fixed_expenses"
	fieldSavingsGoal   = "savings_goal"
	fieldPurchase      = "planned_purchase"
	fieldItem          = "item"
	fieldCost          = "cost"

	labelMonthlyIncome = "Monthly income"
	labelFixedExpenses = "Fixed expenses"
	labelSavingsGoal   = "Savings goal"
	labelPurchaseCost  = "Purchase cost"
)

// ValidateAmount checks a monetary amount. field is the human readable label
// used in messages.
func ValidateAmount(value any, field string, allowZero bool) (float64, error) {
	if value == nil {
		return 0, &ValidationError{
			Kind:    KindMissingField,
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
		}
	}

	amount, ok := toFloat(value)
	if !ok {
		return 0, &ValidationError{
			Kind:    KindTypeMismatch,
			Field:   field,
			Message: fmt.Sprintf("%s must be a number, got %s", field, typeName(value)),
		}
	}

	if amount < 0 {
		return 0, &ValidationError{
			Kind:    KindOutOfRange,
			Field:   field,
			Message: fmt.Sprintf("%s cannot be negative (got %s)", field, formatNumber(amount)),
		}
	}

	if amount > MaxAmount {
		return 0, &ValidationError{
			Kind:    KindOutOfRange,
			Field:   field,
			Message: fmt.Sprintf("%s cannot exceed %s (got %.6g)", field, formatNumber(MaxAmount), amount),
		}
	}

	if amount == 0 && !allowZero {
		return 0, &ValidationError{
			Kind:    KindOutOfRange,
			Field:   field,
			Message: fmt.Sprintf("%s must be greater than 0 (got %s)", field, formatNumber(amount)),
		}
	}

	return amount, nil
}

// ValidatePurchaseItem returns the trimmed item description.
func ValidatePurchaseItem(value any) (string, error) {
	if value == nil {
		return "", &ValidationError{
			Kind:    KindMissingField,
			Field:   fieldItem,
			Message: "Purchase item description is required",
		}
	}

	item, ok := value.(string)
	if !ok {
		return "", &ValidationError{
			Kind:    KindTypeMismatch,
			Field:   fieldItem,
			Message: fmt.Sprintf("Purchase item must be a string, got %s", typeName(value)),
		}
	}

	if item == "" {
		return "", &ValidationError{
			Kind:    KindMissingField,
			Field:   fieldItem,
			Message: "Purchase item description is required",
		}
	}

	trimmed := strings.TrimSpace(item)
	if trimmed == "" {
		return "", &ValidationError{
			Kind:    KindMissingField,
			Field:   fieldItem,
			Message: "Purchase item description cannot be empty or whitespace",
		}
	}

	if utf8.RuneCountInString(trimmed) > MaxPurchaseItemLength {
		return "", &ValidationError{
			Kind:    KindTooLong,
			Field:   fieldItem,
			Message: fmt.Sprintf("Purchase item description is too long (max %d characters)", MaxPurchaseItemLength),
		}
	}

	return trimmed, nil
}

// ValidateInput checks a raw evaluation request and returns the first
// problem found. Missing keys are reported together.
func ValidateInput(raw map[string]any) (domain.EvaluationInput, error) {
	var input domain.EvaluationInput

	if raw == nil {
		raw = map[string]any{}
	}

	var missing []string
	for _, key := range []string{fieldMonthlyIncome, fieldFixedExpenses, fieldSavingsGoal, fieldPurchase} {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}

	purchase, isObject := raw[fieldPurchase].(map[string]any)
	if isObject {
		for _, key := range []string{fieldItem, fieldCost} {
			if _, ok := purchase[key]; !ok {
				missing = append(missing, fieldPurchase+"."+key)
			}
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return input, &ValidationError{
			Kind:    KindMissingField,
			Fields:  missing,
			Message: fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")),
		}
	}

	if !isObject {
		return input, &ValidationError{
			Kind:    KindTypeMismatch,
			Field:   fieldPurchase,
			Message: fmt.Sprintf("planned_purchase must be an object, got %s", typeName(raw[fieldPurchase])),
		}
	}

	var err error
	if input.MonthlyIncome, err = ValidateAmount(raw[fieldMonthlyIncome], labelMonthlyIncome, false); err != nil {
		return input, err
	}
	if input.FixedExpenses, err = ValidateAmount(raw[fieldFixedExpenses], labelFixedExpenses, true); err != nil {
		return input, err
	}
	if input.SavingsGoal, err = ValidateAmount(raw[fieldSavingsGoal], labelSavingsGoal, true); err != nil {
		return input, err
	}
	if input.PurchaseItem, err = ValidatePurchaseItem(purchase[fieldItem]); err != nil {
		return input, err
	}
	if input.PurchaseCost, err = ValidateAmount(purchase[fieldCost], labelPurchaseCost, false); err != nil {
		return input, err
	}

	return input, nil
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		return parseDecimal(string(v))
	case string:
		return parseDecimal(v)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseDecimal(s string) (float64, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func formatNumber(f float64) string {
	return decimal.NewFromFloat(f).String()
}
