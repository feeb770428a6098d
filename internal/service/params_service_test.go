package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsUpdateKnownKey(t *testing.T) {
	svc := NewParamsService()

	changes := svc.Update(map[string]float64{"risk_per_trade": 0.02})
	require.Len(t, changes, 1)
	assert.Equal(t, 0.015, changes["risk_per_trade"].Old)
	assert.Equal(t, 0.02, changes["risk_per_trade"].New)

	params := svc.Get()
	assert.Equal(t, 0.02, params.Values["risk_per_trade"])
	assert.NotNil(t, params.LastUpdated)
}

func TestParamsUpdateUnknownKeySkipped(t *testing.T) {
	svc := NewParamsService()

	changes := svc.Update(map[string]float64{"no_such_knob": 1})
	assert.Empty(t, changes)

	params := svc.Get()
	_, ok := params.Values["no_such_knob"]
	assert.False(t, ok)
	assert.Nil(t, params.LastUpdated)
}

func TestParamsUpdateSameValueNoChange(t *testing.T) {
	svc := NewParamsService()

	changes := svc.Update(map[string]float64{"risk_per_trade": 0.015})
	assert.Empty(t, changes)
	assert.Nil(t, svc.Get().LastUpdated)
}

func TestParamsGetReturnsCopy(t *testing.T) {
	svc := NewParamsService()

	params := svc.Get()
	params.Values["risk_per_trade"] = 99

	assert.Equal(t, 0.015, svc.Get().Values["risk_per_trade"])
}
