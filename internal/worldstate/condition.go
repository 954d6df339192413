package worldstate

import (
	"fmt"
	"regexp"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
)

// Operator is a condition comparison operator, grounded on the teacher's
// Predicate.Operator ("eq","ne","gt","lt","gte","lte","exists") extended with
// "in" and "matches" per spec.md 3, and with production_system.go's
// ConditionRegex/ConditionInRange for the regex and membership cases.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNe      Operator = "ne"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpIn      Operator = "in"
	OpExists  Operator = "exists"
	OpMatches Operator = "matches"
)

// Condition is a single test against one WorldState field.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}   // for eq/ne/lt/lte/gt/gte/matches
	Set      []interface{} // for "in"
}

// ConditionSet is satisfied iff every condition holds.
type ConditionSet []Condition

// Validate checks that Field is known and Operator is compatible with the
// field's kind, returning an invalid_input error otherwise. Registration of
// actions/goals calls this so malformed condition sets are rejected at
// startup rather than silently mis-evaluated during search.
func (c Condition) Validate() error {
	kind, ok := FieldKindOf(c.Field)
	if !ok {
		return coreerrors.New("Condition.Validate", coreerrors.KindInvalidInput,
			fmt.Errorf("unknown field %q", c.Field))
	}
	switch c.Operator {
	case OpEq, OpNe, OpExists:
		return nil
	case OpLt, OpLte, OpGt, OpGte:
		if kind == KindBool || kind == KindStringSet || kind == KindEnum || kind == KindString {
			return coreerrors.New("Condition.Validate", coreerrors.KindInvalidInput,
				fmt.Errorf("operator %q incompatible with field %q", c.Operator, c.Field))
		}
		return nil
	case OpIn:
		return nil
	case OpMatches:
		if kind != KindString && kind != KindEnum {
			return coreerrors.New("Condition.Validate", coreerrors.KindInvalidInput,
				fmt.Errorf("operator %q only valid on string fields, got %q", c.Operator, c.Field))
		}
		if _, err := regexp.Compile(toString(c.Value)); err != nil {
			return coreerrors.New("Condition.Validate", coreerrors.KindInvalidInput, err)
		}
		return nil
	default:
		return coreerrors.New("Condition.Validate", coreerrors.KindInvalidInput,
			fmt.Errorf("unknown operator %q", c.Operator))
	}
}

// Evaluate tests the condition against state.
func (c Condition) Evaluate(state WorldState) bool {
	val, exists := state.Get(c.Field)

	switch c.Operator {
	case OpExists:
		return exists && !isEmptyValue(val)
	case OpEq:
		if !exists {
			return false
		}
		return valuesEqual(val, c.Value)
	case OpNe:
		if !exists {
			return true
		}
		return !valuesEqual(val, c.Value)
	case OpLt, OpLte, OpGt, OpGte:
		if !exists {
			return false
		}
		return compareNumeric(val, c.Value, c.Operator)
	case OpIn:
		if !exists {
			return false
		}
		return membershipHolds(val, c.Set)
	case OpMatches:
		if !exists {
			return false
		}
		re, err := regexp.Compile(toString(c.Value))
		if err != nil {
			return false
		}
		return re.MatchString(toString(val))
	default:
		return false
	}
}

// Evaluate reports whether every condition in the set holds.
func (cs ConditionSet) Evaluate(state WorldState) bool {
	for _, c := range cs {
		if !c.Evaluate(state) {
			return false
		}
	}
	return true
}

// Unsatisfied returns the subset of conditions that do not currently hold,
// used by the planner's heuristic to sum per-condition remaining-cost
// estimates.
func (cs ConditionSet) Unsatisfied(state WorldState) ConditionSet {
	var out ConditionSet
	for _, c := range cs {
		if !c.Evaluate(state) {
			out = append(out, c)
		}
	}
	return out
}

func isEmptyValue(v interface{}) bool {
	switch t := v.(type) {
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case nil:
		return true
	default:
		return false
	}
}

func valuesEqual(a, b interface{}) bool {
	af, aok := asNumeric(a)
	bf, bok := asNumeric(b)
	if aok && bok {
		return af == bf
	}
	ab, aok2 := a.(bool)
	bb, bok2 := b.(bool)
	if aok2 && bok2 {
		return ab == bb
	}
	return toString(a) == toString(b)
}

func asNumeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func compareNumeric(a, b interface{}, op Operator) bool {
	af, aok := asNumeric(a)
	bf, bok := asNumeric(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case OpLt:
		return af < bf
	case OpLte:
		return af <= bf
	case OpGt:
		return af > bf
	case OpGte:
		return af >= bf
	default:
		return false
	}
}

// membershipHolds implements "in": if val is a []string, every member (or, by
// convention, at least the current value) must appear in the listed set is
// too strict for a free field — we test whether val itself (for scalars) or
// any element (for a set field) intersects the listed candidates.
func membershipHolds(val interface{}, candidates []interface{}) bool {
	switch t := val.(type) {
	case []string:
		for _, v := range t {
			for _, c := range candidates {
				if toString(c) == v {
					return true
				}
			}
		}
		return false
	default:
		for _, c := range candidates {
			if valuesEqual(val, c) {
				return true
			}
		}
		return false
	}
}
