package service

import (
	"sync"
	"time"

	"github.com/overtop/tradebrain/internal/domain"
)

// ParamsService owns the mutable runtime trading parameters. The key set is
// fixed at construction; updates can only change values of known keys, so a
// typo in an operator request can never introduce a parameter the bot does
// not understand.
type ParamsService struct {
	mu     sync.Mutex
	params domain.TradingParams
}

// NewParamsService starts from the default parameter set.
func NewParamsService() *ParamsService {
	return &ParamsService{params: domain.DefaultTradingParams()}
}

// Get returns a deep copy of the current parameters.
func (s *ParamsService) Get() domain.TradingParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.params
	out.Values = make(map[string]float64, len(s.params.Values))
	for k, v := range s.params.Values {
		out.Values[k] = v
	}
	return out
}

// Update applies the given values to known keys and returns what changed,
// old and new per key. Unknown keys are skipped silently.
func (s *ParamsService) Update(values map[string]float64) map[string]domain.ParamChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make(map[string]domain.ParamChange)
	for key, val := range values {
		old, ok := s.params.Values[key]
		if !ok {
			continue
		}
		if old == val {
			continue
		}
		s.params.Values[key] = val
		changes[key] = domain.ParamChange{Old: old, New: val}
	}
	if len(changes) > 0 {
		now := time.Now().UTC()
		s.params.LastUpdated = &now
	}
	return changes
}
