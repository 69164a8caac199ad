package condition

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Operator is a comparison applied to a row field.
type Operator string

const (
	OperatorEqual        Operator = "equals"
	OperatorNotEqual     Operator = "not_equals"
	OperatorLessThan     Operator = "less_than"
	OperatorGreaterThan  Operator = "greater_than"
	OperatorLessEqual    Operator = "less_equal"
	OperatorGreaterEqual Operator = "greater_equal"
	OperatorContains     Operator = "contains"
	OperatorMatches      Operator = "matches"
	OperatorIn           Operator = "in"
	OperatorNotIn        Operator = "not_in"

	// OperatorNotEmpty passes when the field holds a non-empty string.
	OperatorNotEmpty Operator = "not_empty"

	// OperatorPresent passes when the field exists and is not nil.
	OperatorPresent Operator = "present"

	// OperatorAbsent passes when the field is missing or nil.
	OperatorAbsent Operator = "absent"
)

// knownOperators is the set of operators accepted in rule definitions.
var knownOperators = map[Operator]struct{}{
	OperatorEqual:        {},
	OperatorNotEqual:     {},
	OperatorLessThan:     {},
	OperatorGreaterThan:  {},
	OperatorLessEqual:    {},
	OperatorGreaterEqual: {},
	OperatorContains:     {},
	OperatorMatches:      {},
	OperatorIn:           {},
	OperatorNotIn:        {},
	OperatorNotEmpty:     {},
	OperatorPresent:      {},
	OperatorAbsent:       {},
}

// Valid reports whether the operator is known.
func (op Operator) Valid() bool {
	_, ok := knownOperators[op]
	return ok
}

// evaluateOperator evaluates an operator comparison between actual and
// expected values. The exists flag reports whether the field was present
// on the row at all, which present/absent need to distinguish from nil.
func evaluateOperator(op Operator, actual, expected any, exists bool) (bool, error) {
	switch op {
	case OperatorEqual:
		return evaluateEqual(actual, expected)

	case OperatorNotEqual:
		equal, err := evaluateEqual(actual, expected)
		return !equal, err

	case OperatorLessThan, OperatorGreaterThan, OperatorLessEqual, OperatorGreaterEqual:
		// A missing or null field never satisfies an ordering comparison,
		// as in SQL. Errors are reserved for malformed rule values.
		if !exists || actual == nil {
			return false, nil
		}
		actualNum, expectedNum, err := toNumeric(actual, expected)
		if err != nil {
			return false, err
		}
		switch op {
		case OperatorLessThan:
			return actualNum < expectedNum, nil
		case OperatorGreaterThan:
			return actualNum > expectedNum, nil
		case OperatorLessEqual:
			return actualNum <= expectedNum, nil
		default:
			return actualNum >= expectedNum, nil
		}

	case OperatorContains:
		return evaluateContains(actual, expected)

	case OperatorMatches:
		return evaluateMatches(actual, expected)

	case OperatorIn:
		return evaluateIn(actual, expected)

	case OperatorNotIn:
		in, err := evaluateIn(actual, expected)
		return !in, err

	case OperatorNotEmpty:
		if !exists || actual == nil {
			return false, nil
		}
		s, ok := actual.(string)
		if !ok {
			return false, fmt.Errorf("not_empty operator requires a string field, got %T", actual)
		}
		return strings.TrimSpace(s) != "", nil

	case OperatorPresent:
		return exists && actual != nil, nil

	case OperatorAbsent:
		return !exists || actual == nil, nil

	default:
		return false, fmt.Errorf("unknown operator: %q", op)
	}
}

// evaluateEqual checks if two values are equal.
func evaluateEqual(actual, expected any) (bool, error) {
	if actual == nil && expected == nil {
		return true, nil
	}
	if actual == nil || expected == nil {
		return false, nil
	}

	// Numeric comparison first (handles int vs float64 from YAML).
	actualNum, actualErr := convertToFloat64(actual)
	expectedNum, expectedErr := convertToFloat64(expected)
	if actualErr == nil && expectedErr == nil {
		return actualNum == expectedNum, nil
	}

	return reflect.DeepEqual(actual, expected), nil
}

// evaluateContains checks if actual contains expected (substring or element).
func evaluateContains(actual, expected any) (bool, error) {
	if actualStr, ok := actual.(string); ok {
		expectedStr, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("contains operator requires string expected value, got %T", expected)
		}
		return strings.Contains(actualStr, expectedStr), nil
	}
	return containsElement(actual, expected)
}

// evaluateMatches checks if actual matches the expected regex pattern.
func evaluateMatches(actual, expected any) (bool, error) {
	actualStr, ok := actual.(string)
	if !ok {
		return false, fmt.Errorf("matches operator requires a string field, got %T", actual)
	}

	pattern, ok := expected.(string)
	if !ok {
		return false, fmt.Errorf("matches operator requires a string pattern, got %T", expected)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}

	return re.MatchString(actualStr), nil
}

// evaluateIn checks if actual is in the expected list.
func evaluateIn(actual, expected any) (bool, error) {
	expectedVal := reflect.ValueOf(expected)
	if expectedVal.Kind() != reflect.Slice && expectedVal.Kind() != reflect.Array {
		return false, fmt.Errorf("in operator requires a list for expected, got %T", expected)
	}

	for i := 0; i < expectedVal.Len(); i++ {
		equal, err := evaluateEqual(actual, expectedVal.Index(i).Interface())
		if err != nil {
			return false, err
		}
		if equal {
			return true, nil
		}
	}

	return false, nil
}

// containsElement checks if a slice/array contains an element.
func containsElement(slice, elem any) (bool, error) {
	sliceVal := reflect.ValueOf(slice)
	if sliceVal.Kind() != reflect.Slice && sliceVal.Kind() != reflect.Array {
		return false, fmt.Errorf("contains operator on non-string requires slice or array, got %T", slice)
	}

	for i := 0; i < sliceVal.Len(); i++ {
		equal, err := evaluateEqual(sliceVal.Index(i).Interface(), elem)
		if err != nil {
			return false, err
		}
		if equal {
			return true, nil
		}
	}

	return false, nil
}

// toNumeric converts values to float64 for numeric comparison.
func toNumeric(actual, expected any) (float64, float64, error) {
	actualNum, err := convertToFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert actual value to number: %w", err)
	}

	expectedNum, err := convertToFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert expected value to number: %w", err)
	}

	return actualNum, expectedNum, nil
}

// convertToFloat64 converts a value to float64.
func convertToFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}
