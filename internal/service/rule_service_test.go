package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/engine"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConfigCache records every SetConfig payload and signals arrival so
// tests can wait for the asynchronous refresh.
type fakeConfigCache struct {
	mu       sync.Mutex
	payloads [][]byte
	notify   chan struct{}
}

func newFakeConfigCache() *fakeConfigCache {
	return &fakeConfigCache{notify: make(chan struct{}, 16)}
}

func (c *fakeConfigCache) SetConfig(_ context.Context, payload []byte) error {
	c.mu.Lock()
	c.payloads = append(c.payloads, payload)
	c.mu.Unlock()
	c.notify <- struct{}{}
	return nil
}

func (c *fakeConfigCache) wait(t *testing.T) []byte {
	t.Helper()
	select {
	case <-c.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config cache refresh")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloads[len(c.payloads)-1]
}

func newTestRuleService(cache ConfigCache) *RuleService {
	return NewRuleService(engine.NewRepository(), NewParamsService(), nil, nil, cache, discardLogger())
}

func manualRule(id string, version int) domain.Rule {
	return domain.Rule{
		ID:      id,
		Version: version,
		Triggers: []domain.Trigger{
			{Param: "strength", Op: domain.OpLT, Value: 0.2},
		},
		Action:  domain.Action{Type: domain.ActionBlockEntry, Reason: "manual"},
		Enabled: true,
	}
}

func TestSubmitAppliesDefaults(t *testing.T) {
	svc := newTestRuleService(nil)

	rule := manualRule("", 0)
	res, err := svc.Submit(context.Background(), rule)
	require.NoError(t, err)

	assert.Equal(t, engine.OutcomeAdded, res.Outcome)
	assert.True(t, strings.HasPrefix(res.RuleID, "MANUAL_"))
	assert.Equal(t, 1, res.TotalRules)

	all := svc.ListAll()
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, domain.SourceManual, all[0].Source)
}

func TestSubmitStaleVersionIsReportedNotApplied(t *testing.T) {
	svc := newTestRuleService(nil)

	_, err := svc.Submit(context.Background(), manualRule("R1", 2))
	require.NoError(t, err)

	res, err := svc.Submit(context.Background(), manualRule("R1", 2))
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeStale, res.Outcome)

	res, err = svc.Submit(context.Background(), manualRule("R1", 3))
	require.NoError(t, err)
	assert.Equal(t, engine.OutcomeUpdated, res.Outcome)
}

func TestSubmitRejectsInvalidRule(t *testing.T) {
	svc := newTestRuleService(nil)

	bad := manualRule("R1", 1)
	bad.Action.Type = "explode"
	_, err := svc.Submit(context.Background(), bad)
	assert.ErrorIs(t, err, domain.ErrInvalidRule)

	assert.Empty(t, svc.ListAll())
}

func TestDisableUnknownRule(t *testing.T) {
	svc := newTestRuleService(nil)
	err := svc.Disable(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDisableRemovesFromConfigPayloadOnly(t *testing.T) {
	svc := newTestRuleService(nil)
	_, err := svc.Submit(context.Background(), manualRule("R1", 1))
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), manualRule("R2", 1))
	require.NoError(t, err)

	require.NoError(t, svc.Disable(context.Background(), "R1"))

	payload := svc.ConfigPayload()
	require.Len(t, payload.Rules, 1)
	assert.Equal(t, "R2", payload.Rules[0].ID)

	// Disabled rules stay visible on the full listing.
	assert.Len(t, svc.ListAll(), 2)
}

func TestSubmitRefreshesConfigCache(t *testing.T) {
	cache := newFakeConfigCache()
	svc := newTestRuleService(cache)

	_, err := svc.Submit(context.Background(), manualRule("R1", 1))
	require.NoError(t, err)

	data := cache.wait(t)
	var payload ConfigPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	require.Len(t, payload.Rules, 1)
	assert.Equal(t, "R1", payload.Rules[0].ID)
	assert.NotEmpty(t, payload.Params.Values)
}

func TestRulesAddedRefreshesConfigCache(t *testing.T) {
	cache := newFakeConfigCache()
	svc := newTestRuleService(cache)

	svc.RulesAdded(context.Background(), []domain.Rule{manualRule("R1", 1)})

	data := cache.wait(t)
	var payload ConfigPayload
	require.NoError(t, json.Unmarshal(data, &payload))
	// RulesAdded fires after engine.Repository.Merge already stored the
	// rules, so the payload here reflects whatever the repository holds.
	assert.NotNil(t, payload.Params.Values)
}

func TestConfigPayloadIncludesParams(t *testing.T) {
	svc := newTestRuleService(nil)

	payload := svc.ConfigPayload()
	assert.NotEmpty(t, payload.Params.Values)
	assert.Empty(t, payload.Rules)
	assert.False(t, payload.GeneratedAt.IsZero())
}
