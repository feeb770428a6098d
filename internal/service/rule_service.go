package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/overtop/tradebrain/internal/domain"
	"github.com/overtop/tradebrain/internal/engine"
)

// ConfigPayload is what the bot receives when it polls for directives: the
// runtime trading parameters plus every enabled rule.
type ConfigPayload struct {
	Params      domain.TradingParams `json:"params"`
	Rules       []domain.Rule        `json:"rules"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// SubmitResult reports what a rule submission did.
type SubmitResult struct {
	Outcome    engine.UpsertOutcome `json:"status"`
	RuleID     string               `json:"rule_id"`
	TotalRules int                  `json:"total_rules"`
}

// ConfigCache holds the latest serialized config payload for replicas that
// poll Redis instead of the HTTP API.
type ConfigCache interface {
	SetConfig(ctx context.Context, payload []byte) error
}

// RuleService handles operator and bot interactions with the rule
// repository: submission, disabling, and serving the active set. It also
// implements engine.RuleSink so miner-added rules flow through the same
// fanout and cache refresh as operator submissions.
type RuleService struct {
	repo   *engine.Repository
	params *ParamsService
	mirror *Mirror
	fanout *RuleFanout
	cache  ConfigCache
	logger *slog.Logger
}

// NewRuleService wires the service. mirror, fanout, and cache may be nil.
func NewRuleService(repo *engine.Repository, params *ParamsService, mirror *Mirror, fanout *RuleFanout, cache ConfigCache, logger *slog.Logger) *RuleService {
	return &RuleService{
		repo:   repo,
		params: params,
		mirror: mirror,
		fanout: fanout,
		cache:  cache,
		logger: logger.With(slog.String("component", "rules")),
	}
}

// Submit applies a version-gated upsert. Rules without an identifier get a
// generated one; missing version defaults to 1 and missing source to
// "manual". A stale submission is a reported outcome, not an error.
func (s *RuleService) Submit(ctx context.Context, rule domain.Rule) (SubmitResult, error) {
	if rule.ID == "" {
		rule.ID = "MANUAL_" + strings.ToUpper(uuid.NewString()[:8])
	}
	if rule.Version == 0 {
		rule.Version = 1
	}
	if rule.Source == "" {
		rule.Source = domain.SourceManual
	}
	if err := rule.Validate(); err != nil {
		return SubmitResult{}, err
	}

	outcome := s.repo.Upsert(rule)
	if outcome != engine.OutcomeStale {
		stored, _ := s.repo.Get(rule.ID)
		s.mirror.SaveRule(stored)
		if s.fanout != nil {
			s.fanout.AnnounceRuleChange("rule_"+string(outcome), rule.ID)
		}
		s.logger.InfoContext(ctx, "rule submitted",
			slog.String("rule_id", rule.ID),
			slog.String("outcome", string(outcome)),
			slog.Int("version", rule.Version),
		)
		s.RefreshCache()
	}

	return SubmitResult{
		Outcome:    outcome,
		RuleID:     rule.ID,
		TotalRules: s.repo.Len(),
	}, nil
}

// Disable flips the enabled flag on a rule. The rule stays listed for
// audit; its outcome counters freeze. Returns domain.ErrNotFound for
// unknown identifiers.
func (s *RuleService) Disable(ctx context.Context, id string) error {
	if err := s.repo.Disable(id); err != nil {
		return err
	}
	s.mirror.DisableRule(id)
	if s.fanout != nil {
		s.fanout.AnnounceRuleChange("rule_disabled", id)
	}
	s.logger.InfoContext(ctx, "rule disabled", slog.String("rule_id", id))
	s.RefreshCache()
	return nil
}

// RulesAdded implements engine.RuleSink for miner output.
func (s *RuleService) RulesAdded(ctx context.Context, rules []domain.Rule) {
	if s.fanout != nil {
		s.fanout.RulesAdded(ctx, rules)
	}
	s.RefreshCache()
}

// PassCompleted implements engine.PassObserver: the summary goes to the
// analysis stream for observers.
func (s *RuleService) PassCompleted(_ context.Context, summary engine.PassSummary) {
	if s.fanout != nil {
		s.fanout.AnnounceAnalysis(summary)
	}
}

// ListAll returns every rule, disabled ones included.
func (s *RuleService) ListAll() []domain.Rule {
	return s.repo.ListAll()
}

// ConfigPayload builds the poll response served to the bot: parameters plus
// enabled rules only.
func (s *RuleService) ConfigPayload() ConfigPayload {
	return ConfigPayload{
		Params:      s.params.Get(),
		Rules:       s.repo.ListEnabled(),
		GeneratedAt: time.Now().UTC(),
	}
}

// RefreshCache pushes the current payload to the config cache off the
// request path. Failures are logged and forgotten.
func (s *RuleService) RefreshCache() {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(s.ConfigPayload())
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cache.SetConfig(ctx, data); err != nil {
			s.logger.Debug("config cache refresh failed", slog.String("error", err.Error()))
		}
	}()
}
