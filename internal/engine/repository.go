package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
)

// UpsertOutcome reports what a Repository.Upsert call did.
type UpsertOutcome string

const (
	OutcomeAdded   UpsertOutcome = "added"
	OutcomeUpdated UpsertOutcome = "updated"
	// OutcomeStale means the submitted version was not strictly greater
	// than the stored one; the stored rule is unchanged. This is a
	// caller-visible result, not an error.
	OutcomeStale UpsertOutcome = "skipped_stale"
)

// Repository holds the current rule set, keyed by identifier. Rules are
// never physically removed; Disable only flips the enabled flag so the
// rule stays visible for audit. All methods are safe for concurrent use.
type Repository struct {
	mu    sync.RWMutex
	rules map[string]*domain.Rule
}

// NewRepository returns an empty Repository.
func NewRepository() *Repository {
	return &Repository{rules: make(map[string]*domain.Rule)}
}

// Load seeds the repository from the durable mirror at startup. Existing
// entries with the same identifier are only replaced by higher versions,
// so Load composes safely with rules submitted before the mirror answered.
func (r *Repository) Load(rules []domain.Rule) {
	for _, rule := range rules {
		r.Upsert(rule)
	}
}

// Upsert inserts rule, or replaces the stored rule with the same identifier
// when the incoming version is strictly greater. Equal or lower versions
// leave the stored rule untouched and report OutcomeStale.
func (r *Repository) Upsert(rule domain.Rule) UpsertOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rules[rule.ID]
	if !ok {
		now := time.Now().UTC()
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
		rule.UpdatedAt = now
		r.rules[rule.ID] = &rule
		return OutcomeAdded
	}
	if rule.Version <= existing.Version {
		return OutcomeStale
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()
	r.rules[rule.ID] = &rule
	return OutcomeUpdated
}

// Merge inserts every candidate whose identifier is not already present and
// returns the rules actually added. The whole merge happens under one lock
// so two racing analysis passes cannot both insert the same identifier.
func (r *Repository) Merge(candidates []domain.Rule) []domain.Rule {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []domain.Rule
	now := time.Now().UTC()
	for _, c := range candidates {
		if _, ok := r.rules[c.ID]; ok {
			continue
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		rule := c
		r.rules[rule.ID] = &rule
		added = append(added, rule)
	}
	return added
}

// Disable flips the enabled flag on the matching rule. The rule remains
// listed for audit. Returns domain.ErrNotFound for unknown identifiers.
func (r *Repository) Disable(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok {
		return domain.ErrNotFound
	}
	rule.Enabled = false
	rule.UpdatedAt = time.Now().UTC()
	return nil
}

// RecordOutcome updates the trigger counters of an enabled rule after the
// bot reports a trade that fired it. Counters freeze once a rule is
// disabled.
func (r *Repository) RecordOutcome(id string, win bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.rules[id]
	if !ok || !rule.Enabled {
		return
	}
	rule.Hits++
	if win {
		rule.WinsAfter++
	} else {
		rule.LossesAfter++
	}
}

// Get returns a copy of the rule with the given identifier.
func (r *Repository) Get(id string) (domain.Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return domain.Rule{}, false
	}
	return *rule, true
}

// ListAll returns every rule, disabled ones included, sorted by priority
// then identifier.
func (r *Repository) ListAll() []domain.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	sortRules(out)
	return out
}

// ListEnabled returns only the rules currently served to the bot as active
// directives.
func (r *Repository) ListEnabled() []domain.Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Rule
	for _, rule := range r.rules {
		if rule.Enabled {
			out = append(out, *rule)
		}
	}
	sortRules(out)
	return out
}

// ActiveIDs returns the set of all stored identifiers, the miner's dedup
// input. Disabled rules stay in the set: a disabled rule was an operator
// decision and the miner must not resurrect the pattern.
func (r *Repository) ActiveIDs() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make(map[string]struct{}, len(r.rules))
	for id := range r.rules {
		ids[id] = struct{}{}
	}
	return ids
}

// Len returns the number of stored rules.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

func sortRules(rules []domain.Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
