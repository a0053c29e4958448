package interpreter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/trustfall/trustfall-go/internal/ir"
)

// evaluateOperation applies a filter operator to its operands. Null
// short-circuits every binary operator to false; only is_null and
// is_not_null accept Null. Incompatible operand shapes are errors — the
// frontend prevents them, so hitting one means the adapter produced a
// value of the wrong shape.
//
// pattern, when non-nil, is the pre-compiled regex for regex operators;
// otherwise the right operand is compiled at each evaluation (tag
// operands, whose pattern is only known mid-stream).
func evaluateOperation(op ir.Operation, left, right ir.Value, pattern *regexp.Regexp) (bool, error) {
	switch op {
	case ir.OpIsNull:
		return left.IsNull(), nil
	case ir.OpIsNotNull:
		return !left.IsNull(), nil
	}
	if left.IsNull() || right.IsNull() {
		return false, nil
	}

	switch op {
	case ir.OpEquals:
		return left.Equal(right), nil
	case ir.OpNotEquals:
		return !left.Equal(right), nil
	case ir.OpLessThan, ir.OpLessOrEqual, ir.OpGreaterThan, ir.OpGreaterOrEqual:
		c, err := left.Compare(right)
		if err != nil {
			return false, err
		}
		switch op {
		case ir.OpLessThan:
			return c < 0, nil
		case ir.OpLessOrEqual:
			return c <= 0, nil
		case ir.OpGreaterThan:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case ir.OpContains, ir.OpNotContains:
		items, ok := left.AsList()
		if !ok {
			return false, fmt.Errorf("%s requires a list left operand, got %s", op, left.Kind())
		}
		found := false
		for _, item := range items {
			if item.Equal(right) {
				found = true
				break
			}
		}
		if op == ir.OpContains {
			return found, nil
		}
		return !found, nil
	case ir.OpOneOf, ir.OpNotOneOf:
		items, ok := right.AsList()
		if !ok {
			return false, fmt.Errorf("%s requires a list right operand, got %s", op, right.Kind())
		}
		found := false
		for _, item := range items {
			if item.Equal(left) {
				found = true
				break
			}
		}
		if op == ir.OpOneOf {
			return found, nil
		}
		return !found, nil
	case ir.OpHasPrefix, ir.OpNotHasPrefix, ir.OpHasSuffix, ir.OpNotHasSuffix,
		ir.OpHasSubstring, ir.OpNotHasSubstring:
		l, lok := left.AsString()
		r, rok := right.AsString()
		if !lok || !rok {
			return false, fmt.Errorf("%s requires string operands, got %s and %s", op, left.Kind(), right.Kind())
		}
		return stringOperation(op, l, r)
	case ir.OpRegex, ir.OpNotRegex:
		l, lok := left.AsString()
		if !lok {
			return false, fmt.Errorf("%s requires a string left operand, got %s", op, left.Kind())
		}
		if pattern == nil {
			r, rok := right.AsString()
			if !rok {
				return false, fmt.Errorf("%s requires a string pattern, got %s", op, right.Kind())
			}
			compiled, err := regexp.Compile(r)
			if err != nil {
				return false, fmt.Errorf("invalid regex pattern %q: %v", r, err)
			}
			pattern = compiled
		}
		matched := pattern.MatchString(l)
		if op == ir.OpRegex {
			return matched, nil
		}
		return !matched, nil
	default:
		return false, fmt.Errorf("unknown filter operator %q", op)
	}
}

func stringOperation(op ir.Operation, l, r string) (bool, error) {
	var result bool
	switch op {
	case ir.OpHasPrefix, ir.OpNotHasPrefix:
		result = strings.HasPrefix(l, r)
		if op == ir.OpNotHasPrefix {
			result = !result
		}
	case ir.OpHasSuffix, ir.OpNotHasSuffix:
		result = strings.HasSuffix(l, r)
		if op == ir.OpNotHasSuffix {
			result = !result
		}
	case ir.OpHasSubstring, ir.OpNotHasSubstring:
		result = strings.Contains(l, r)
		if op == ir.OpNotHasSubstring {
			result = !result
		}
	}
	return result, nil
}
