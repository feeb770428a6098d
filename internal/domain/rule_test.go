package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerNumericOps(t *testing.T) {
	cases := []struct {
		op   Op
		val  any
		cmp  any
		want bool
	}{
		{OpGT, 0.5, 0.2, true},
		{OpGT, 0.2, 0.2, false},
		{OpGTE, 0.2, 0.2, true},
		{OpLT, 0.1, 0.2, true},
		{OpLT, 0.2, 0.2, false},
		{OpLTE, 0.2, 0.2, true},
		{OpEQ, 3.0, 3, true},
		{OpNEQ, 3.0, 4, true},
	}
	for _, tc := range cases {
		trig := Trigger{Param: "x", Op: tc.op, Value: tc.cmp}
		assert.Equal(t, tc.want, trig.Matches(tc.val), "op %s val %v cmp %v", tc.op, tc.val, tc.cmp)
	}
}

func TestTriggerStringEquality(t *testing.T) {
	trig := Trigger{Param: "regime", Op: OpEQ, Value: "choppy"}
	assert.True(t, trig.Matches("choppy"))
	assert.False(t, trig.Matches("trending"))
}

func TestTriggerInOps(t *testing.T) {
	trig := Trigger{Param: "asset", Op: OpIn, Value: []any{"BTCUSDC", "ETHUSDC"}}
	assert.True(t, trig.Matches("BTCUSDC"))
	assert.False(t, trig.Matches("SOLUSDC"))

	not := Trigger{Param: "asset", Op: OpNotIn, Value: []any{"BTCUSDC"}}
	assert.False(t, not.Matches("BTCUSDC"))
	assert.True(t, not.Matches("SOLUSDC"))
}

func TestTriggerMalformedNeverMatches(t *testing.T) {
	// Unknown operator.
	assert.False(t, Trigger{Param: "x", Op: "~", Value: 1}.Matches(1))
	// Non-numeric operands on a numeric comparison.
	assert.False(t, Trigger{Param: "x", Op: OpGT, Value: "abc"}.Matches(0.5))
	// "in" against a non-list comparand.
	assert.False(t, Trigger{Param: "x", Op: OpIn, Value: "abc"}.Matches("abc"))
}

func TestTriggerSurvivesJSONRoundTrip(t *testing.T) {
	// JSON decoding turns every number into float64; integer-valued
	// triggers must keep matching.
	raw := `{"param":"hour_utc","op":">=","value":20}`
	var trig Trigger
	require.NoError(t, json.Unmarshal([]byte(raw), &trig))
	assert.True(t, trig.Matches(21))
	assert.False(t, trig.Matches(19))
}

func TestRuleMatchesAllTriggers(t *testing.T) {
	rule := Rule{
		ID:      "R1",
		Version: 1,
		Triggers: []Trigger{
			{Param: "strength", Op: OpLT, Value: 0.2},
			{Param: "mode", Op: OpEQ, Value: "FLAT"},
		},
		Action: Action{Type: ActionBlockEntry},
	}

	assert.True(t, rule.Matches(map[string]any{"strength": 0.1, "mode": "FLAT"}))
	assert.False(t, rule.Matches(map[string]any{"strength": 0.5, "mode": "FLAT"}))
	// A missing parameter fails the whole rule.
	assert.False(t, rule.Matches(map[string]any{"strength": 0.1}))
}

func TestRuleWithoutTriggersNeverMatches(t *testing.T) {
	rule := Rule{ID: "R1", Version: 1, Action: Action{Type: ActionBlockEntry}}
	assert.False(t, rule.Matches(map[string]any{"strength": 0.1}))
}

func TestRuleValidate(t *testing.T) {
	valid := Rule{
		ID:       "R1",
		Version:  1,
		Triggers: []Trigger{{Param: "strength", Op: OpLT, Value: 0.2}},
		Action:   Action{Type: ActionBlockEntry},
	}
	require.NoError(t, valid.Validate())

	missingID := valid
	missingID.ID = ""
	assert.ErrorIs(t, missingID.Validate(), ErrInvalidRule)

	badVersion := valid
	badVersion.Version = 0
	assert.ErrorIs(t, badVersion.Validate(), ErrInvalidRule)

	badAction := valid
	badAction.Action = Action{Type: "self_destruct"}
	assert.ErrorIs(t, badAction.Validate(), ErrInvalidRule)

	badOp := valid
	badOp.Triggers = []Trigger{{Param: "strength", Op: "~", Value: 0.2}}
	assert.ErrorIs(t, badOp.Validate(), ErrInvalidRule)

	missingParam := valid
	missingParam.Triggers = []Trigger{{Op: OpLT, Value: 0.2}}
	assert.ErrorIs(t, missingParam.Validate(), ErrInvalidRule)
}
