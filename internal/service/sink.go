package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
)

// Pub/sub channels and streams announced on the signal bus.
const (
	ChannelEvents  = "brain:events"
	ChannelRules   = "brain:rules"
	StreamAnalysis = "brain:analysis"
)

// RuleFanout implements engine.RuleSink: newly merged rules are mirrored to
// durable storage and announced on the signal bus. Both legs are
// best-effort and happen off the engine's locks.
type RuleFanout struct {
	mirror *Mirror
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewRuleFanout builds a fanout. mirror and bus may each be nil.
func NewRuleFanout(mirror *Mirror, bus domain.SignalBus, logger *slog.Logger) *RuleFanout {
	return &RuleFanout{
		mirror: mirror,
		bus:    bus,
		logger: logger.With(slog.String("component", "rule_fanout")),
	}
}

// RulesAdded mirrors each rule and publishes one rules_updated message.
func (f *RuleFanout) RulesAdded(ctx context.Context, rules []domain.Rule) {
	for _, r := range rules {
		f.mirror.SaveRule(r)
	}
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	f.publish(map[string]any{
		"event":    "rules_updated",
		"added":    len(rules),
		"rule_ids": ids,
	})
}

// AnnounceRuleChange publishes a single rule lifecycle event (submitted,
// updated, disabled).
func (f *RuleFanout) AnnounceRuleChange(event, ruleID string) {
	f.publish(map[string]any{
		"event":   event,
		"rule_id": ruleID,
	})
}

// AnnounceAnalysis records a completed pass summary on the analysis stream
// so observers can replay recent history.
func (f *RuleFanout) AnnounceAnalysis(payload any) {
	if f.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.bus.StreamAppend(ctx, StreamAnalysis, data); err != nil {
			f.logger.Debug("analysis stream append failed", slog.String("error", err.Error()))
		}
	}()
}

func (f *RuleFanout) publish(payload map[string]any) {
	if f.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.bus.Publish(ctx, ChannelRules, data); err != nil {
			f.logger.Debug("rule announce failed", slog.String("error", err.Error()))
		}
	}()
}
