package trades

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/domain"
	"github.com/aristath/tradepulse/internal/events"
	"github.com/aristath/tradepulse/internal/money"
)

// analyticsEngine is the slice of the orchestrator the service needs.
type analyticsEngine interface {
	ComputeAndStore(trades []domain.Trade, settings analytics.Settings)
	ForceRecompute(trades []domain.Trade, settings analytics.Settings)
}

// Service coordinates the trade ledger with the analytics engine.
// Every mutation of the ledger feeds the full trade list back into the
// orchestrator so the published analytics track the stored data.
type Service struct {
	repo   *Repository
	engine analyticsEngine
	bus    *events.Bus
	log    zerolog.Logger

	mu       sync.RWMutex
	settings analytics.Settings
}

// NewService creates a new trade service.
func NewService(repo *Repository, engine analyticsEngine, bus *events.Bus, settings analytics.Settings, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		bus:      bus,
		settings: settings.Normalized(),
		log:      log.With().Str("service", "trades").Logger(),
	}
}

// Settings returns the analytics settings currently in effect.
func (s *Service) Settings() analytics.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the analytics settings and recomputes over
// the stored ledger.
func (s *Service) UpdateSettings(settings analytics.Settings) error {
	s.mu.Lock()
	s.settings = settings.Normalized()
	s.mu.Unlock()
	return s.recompute(false)
}

// Import normalizes monetary fields to their canonical precision,
// persists the batch atomically, and schedules a recompute over the
// full ledger. Returns the assigned trade IDs.
func (s *Service) Import(incoming []domain.Trade) ([]string, error) {
	if len(incoming) == 0 {
		return nil, nil
	}

	normalized := make([]domain.Trade, len(incoming))
	for i, t := range incoming {
		t.Side = domain.ParseSide(string(t.Side))
		normalized[i] = money.MigrateTrade(t)
	}

	ids, err := s.repo.CreateBatch(normalized)
	if err != nil {
		return nil, fmt.Errorf("import failed: %w", err)
	}

	if s.bus != nil {
		s.bus.Emit(events.TradesImported, "trades", map[string]interface{}{
			"count": len(ids),
			"at":    time.Now().UTC(),
		})
	}

	if err := s.recompute(false); err != nil {
		return ids, err
	}
	return ids, nil
}

// List returns every stored trade ordered by date.
func (s *Service) List() ([]domain.Trade, error) {
	return s.repo.GetAll()
}

// Delete removes one trade and schedules a recompute.
func (s *Service) Delete(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	return s.recompute(false)
}

// Clear empties the ledger; the orchestrator clears its published
// state when handed the empty list.
func (s *Service) Clear() error {
	if err := s.repo.DeleteAll(); err != nil {
		return err
	}
	return s.recompute(false)
}

// Recompute forces a fresh pipeline run over the stored ledger,
// bypassing the unchanged-data guard and the result cache.
func (s *Service) Recompute() error {
	return s.recompute(true)
}

// Refresh schedules an ordinary compute over the stored ledger. When
// the fingerprint and settings are unchanged it costs nothing, which
// makes it safe to run on a timer.
func (s *Service) Refresh() error {
	return s.recompute(false)
}

func (s *Service) recompute(force bool) error {
	trades, err := s.repo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load ledger for recompute: %w", err)
	}

	settings := s.Settings()
	if force {
		s.engine.ForceRecompute(trades, settings)
	} else {
		s.engine.ComputeAndStore(trades, settings)
	}
	s.log.Debug().Int("trades", len(trades)).Bool("force", force).Msg("Recompute scheduled")
	return nil
}
