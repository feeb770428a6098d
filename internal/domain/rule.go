package domain

import (
	"fmt"
	"time"
)

// Op is a trigger comparison operator. The set is closed; trigger
// evaluation matches it exhaustively so a new operator cannot be added
// without updating every switch.
type Op string

const (
	OpGT    Op = ">"
	OpGTE   Op = ">="
	OpLT    Op = "<"
	OpLTE   Op = "<="
	OpEQ    Op = "=="
	OpNEQ   Op = "!="
	OpIn    Op = "in"
	OpNotIn Op = "not_in"
)

// ValidOp reports whether op is one of the closed operator set.
func ValidOp(op Op) bool {
	switch op {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ, OpNEQ, OpIn, OpNotIn:
		return true
	}
	return false
}

// Trigger is a single predicate over a named trade parameter. A rule
// applies only when all of its triggers hold.
type Trigger struct {
	Param string `json:"param"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Matches evaluates the trigger against a parameter value. Numeric
// comparisons use the comparand as a literal cutoff with no epsilon
// tolerance. Unknown operators and non-comparable value pairs evaluate
// to false rather than erroring: a malformed trigger must never block
// or resize a trade by accident.
func (t Trigger) Matches(val any) bool {
	switch t.Op {
	case OpGT:
		a, b, ok := bothFloats(val, t.Value)
		return ok && a > b
	case OpGTE:
		a, b, ok := bothFloats(val, t.Value)
		return ok && a >= b
	case OpLT:
		a, b, ok := bothFloats(val, t.Value)
		return ok && a < b
	case OpLTE:
		a, b, ok := bothFloats(val, t.Value)
		return ok && a <= b
	case OpEQ:
		return looseEqual(val, t.Value)
	case OpNEQ:
		return !looseEqual(val, t.Value)
	case OpIn:
		return contains(t.Value, val)
	case OpNotIn:
		return !contains(t.Value, val)
	}
	return false
}

func bothFloats(a, b any) (float64, float64, bool) {
	fa, oka := toFloat(a)
	fb, okb := toFloat(b)
	return fa, fb, oka && okb
}

// toFloat normalises the numeric types that survive a JSON round trip.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func looseEqual(a, b any) bool {
	if fa, fb, ok := bothFloats(a, b); ok {
		return fa == fb
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func contains(set any, v any) bool {
	items, ok := set.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if looseEqual(v, item) {
			return true
		}
	}
	return false
}

// ActionType tags the rule action variant.
type ActionType string

const (
	// ActionBlockEntry instructs the bot to skip entries matching the
	// rule's triggers.
	ActionBlockEntry ActionType = "block_entry"
	// ActionResize instructs the bot to scale position size by Multiplier.
	ActionResize ActionType = "resize"
)

// Action is the directive a rule carries. Reason is set for block_entry,
// Multiplier for resize.
type Action struct {
	Type       ActionType `json:"type"`
	Reason     string     `json:"reason,omitempty"`
	Multiplier float64    `json:"multiplier,omitempty"`
}

// Rule is a versioned conditional directive (a "capsule") that the bot
// polls and enforces. Identifiers are globally unique and double as the
// deduplication key: the miner never emits an identifier that is already
// present in the repository.
type Rule struct {
	ID          string    `json:"rule_id"`
	Version     int       `json:"version"`
	Description string    `json:"description"`
	Triggers    []Trigger `json:"triggers"`
	Action      Action    `json:"action"`
	Priority    int       `json:"priority"`
	Enabled     bool      `json:"enabled"`
	Source      string    `json:"source"`

	// Outcome counters, updated as the bot reports trades after the rule
	// fired. Frozen once the rule is disabled.
	Hits        int `json:"hits"`
	WinsAfter   int `json:"wins_after"`
	LossesAfter int `json:"losses_after"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SourceManual marks operator-submitted rules; miner-produced rules carry
// a "miner:<heuristic>" source instead.
const SourceManual = "manual"

// Matches reports whether every trigger holds against the given parameter
// map. Rules with no triggers never match.
func (r Rule) Matches(params map[string]any) bool {
	if len(r.Triggers) == 0 {
		return false
	}
	for _, t := range r.Triggers {
		val, ok := params[t.Param]
		if !ok {
			return false
		}
		if !t.Matches(val) {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of an externally submitted rule.
func (r Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing rule_id", ErrInvalidRule)
	}
	if r.Version < 1 {
		return fmt.Errorf("%w: version must be >= 1", ErrInvalidRule)
	}
	switch r.Action.Type {
	case ActionBlockEntry, ActionResize:
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidRule, r.Action.Type)
	}
	for i, t := range r.Triggers {
		if t.Param == "" {
			return fmt.Errorf("%w: trigger %d missing param", ErrInvalidRule, i)
		}
		if !ValidOp(t.Op) {
			return fmt.Errorf("%w: trigger %d has unknown op %q", ErrInvalidRule, i, t.Op)
		}
	}
	return nil
}
