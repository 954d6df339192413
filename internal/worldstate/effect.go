package worldstate

import (
	"fmt"

	"github.com/iamthegreatdestroyer/agentic-qe-core/internal/coreerrors"
)

// EffectOp is a state mutation operator, grounded on the teacher's
// StateEffect.Operation ("set","add","multiply","remove") but matching the
// operator set spec.md 3 actually requires.
type EffectOp string

const (
	EffectSet       EffectOp = "set"
	EffectIncrease  EffectOp = "increase"
	EffectDecrease  EffectOp = "decrease"
	EffectIncrement EffectOp = "increment"
	EffectDecrement EffectOp = "decrement"
	EffectAdd       EffectOp = "add"    // append to ordered sequence if not present
	EffectRemove    EffectOp = "remove" // remove from ordered sequence (set fields only)
)

// Effect mutates one WorldState field.
type Effect struct {
	Field     string
	Operation EffectOp
	Value     interface{}
}

// Effects is an ordered group of effects applied atomically.
type Effects []Effect

// Validate checks the field is known and the operation is compatible with its
// kind (e.g. "increase" is invalid on a bool field).
func (e Effect) Validate() error {
	kind, ok := FieldKindOf(e.Field)
	if !ok {
		return coreerrors.New("Effect.Validate", coreerrors.KindInvalidInput,
			fmt.Errorf("unknown field %q", e.Field))
	}
	switch e.Operation {
	case EffectSet:
		return nil
	case EffectIncrease, EffectDecrease, EffectIncrement, EffectDecrement:
		if kind != KindPercent && kind != KindCount && kind != KindFloat {
			return coreerrors.New("Effect.Validate", coreerrors.KindInvalidInput,
				fmt.Errorf("operation %q incompatible with field %q", e.Operation, e.Field))
		}
		return nil
	case EffectAdd, EffectRemove:
		if kind != KindStringSet {
			return coreerrors.New("Effect.Validate", coreerrors.KindInvalidInput,
				fmt.Errorf("operation %q only valid on set fields, got %q", e.Operation, e.Field))
		}
		return nil
	default:
		return coreerrors.New("Effect.Validate", coreerrors.KindInvalidInput,
			fmt.Errorf("unknown operation %q", e.Operation))
	}
}

// SetsFlagTrue reports whether this effect sets a boolean field to true —
// used by the workflow compiler's dependency extraction (a "measurement
// flag" producer) and by alternative-path generation (actions that set
// measurement flags are excluded from the exclusion search).
func (e Effect) SetsFlagTrue() bool {
	kind, ok := FieldKindOf(e.Field)
	if !ok || kind != KindBool {
		return false
	}
	if e.Operation != EffectSet {
		return false
	}
	return toBool(e.Value)
}

// Apply applies one effect to a clone of state and returns the result. The
// caller (ApplyAll) is responsible for atomicity across a whole Effects group.
func (e Effect) Apply(state WorldState) WorldState {
	next := state.Clone()
	kind, ok := FieldKindOf(e.Field)
	if !ok {
		return next
	}

	switch e.Operation {
	case EffectSet:
		_ = next.Set(e.Field, e.Value)
	case EffectIncrease:
		cur, _ := next.Get(e.Field)
		_ = next.Set(e.Field, toFloat(cur)+toFloat(e.Value))
	case EffectDecrease:
		cur, _ := next.Get(e.Field)
		_ = next.Set(e.Field, toFloat(cur)-toFloat(e.Value))
	case EffectIncrement:
		cur, _ := next.Get(e.Field)
		_ = next.Set(e.Field, toFloat(cur)+1)
	case EffectDecrement:
		cur, _ := next.Get(e.Field)
		_ = next.Set(e.Field, toFloat(cur)-1)
	case EffectAdd:
		if kind != KindStringSet {
			return next
		}
		cur, _ := next.Get(e.Field)
		seq, _ := cur.([]string)
		v := toString(e.Value)
		for _, existing := range seq {
			if existing == v {
				return next // already present
			}
		}
		_ = next.Set(e.Field, append(append([]string(nil), seq...), v))
	case EffectRemove:
		if kind != KindStringSet {
			return next
		}
		cur, _ := next.Get(e.Field)
		seq, _ := cur.([]string)
		v := toString(e.Value)
		out := make([]string, 0, len(seq))
		for _, existing := range seq {
			if existing != v {
				out = append(out, existing)
			}
		}
		_ = next.Set(e.Field, out)
	}
	return next
}

// ApplyAll applies every effect in order, each to a fresh clone of the
// previous result (state itself is never mutated), so the
// whole set is atomic from the caller's perspective (either all effects
// land, by construction, since no step can fail once validated).
func (es Effects) ApplyAll(state WorldState) WorldState {
	next := state
	for _, e := range es {
		next = e.Apply(next)
	}
	return next
}
