package trades

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradepulse/internal/analytics"
	"github.com/aristath/tradepulse/internal/domain"
	"github.com/aristath/tradepulse/internal/events"
)

// recordingEngine captures what the service hands to the orchestrator.
type recordingEngine struct {
	mu       sync.Mutex
	computes [][]domain.Trade
	forced   [][]domain.Trade
	settings []analytics.Settings
}

func (e *recordingEngine) ComputeAndStore(trades []domain.Trade, settings analytics.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.computes = append(e.computes, trades)
	e.settings = append(e.settings, settings)
}

func (e *recordingEngine) ForceRecompute(trades []domain.Trade, settings analytics.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forced = append(e.forced, trades)
	e.settings = append(e.settings, settings)
}

func (e *recordingEngine) lastCompute() []domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.computes) == 0 {
		return nil
	}
	return e.computes[len(e.computes)-1]
}

func newTestService(t *testing.T) (*Service, *recordingEngine, *events.Bus) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.InitSchema())

	engine := &recordingEngine{}
	bus := events.NewBus(zerolog.Nop())
	svc := NewService(repo, engine, bus, analytics.Settings{StartingEquity: 10_000}, zerolog.Nop())
	return svc, engine, bus
}

func importTrade(id string, pnl float64) domain.Trade {
	return domain.Trade{
		ID:     id,
		Date:   time.Date(2025, 5, 12, 16, 0, 0, 0, time.UTC),
		Symbol: "NQ",
		Side:   domain.SideLong,
		PnL:    pnl,
	}
}

func TestImportPersistsAndRecomputes(t *testing.T) {
	svc, engine, _ := newTestService(t)

	ids, err := svc.Import([]domain.Trade{importTrade("t1", 100.123), importTrade("t2", -50)})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids)

	last := engine.lastCompute()
	require.Len(t, last, 2)
	// Monetary fields are normalized to cents on the way in.
	assert.Equal(t, 100.12, last[0].PnL)
}

func TestImportEmitsEvent(t *testing.T) {
	svc, _, bus := newTestService(t)

	var mu sync.Mutex
	var got *events.Event
	bus.Subscribe(events.TradesImported, func(e *events.Event) {
		mu.Lock()
		got = e
		mu.Unlock()
	})

	_, err := svc.Import([]domain.Trade{importTrade("t1", 10)})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	assert.Equal(t, "trades", got.Module)
}

func TestImportNormalizesSide(t *testing.T) {
	svc, engine, _ := newTestService(t)

	trade := importTrade("t1", 10)
	trade.Side = "SELL"
	_, err := svc.Import([]domain.Trade{trade})
	require.NoError(t, err)

	last := engine.lastCompute()
	require.Len(t, last, 1)
	assert.Equal(t, domain.SideShort, last[0].Side)
}

func TestImportEmptyIsNoOp(t *testing.T) {
	svc, engine, _ := newTestService(t)

	ids, err := svc.Import(nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
	assert.Nil(t, engine.lastCompute())
}

func TestDeleteRecomputesOverRemainder(t *testing.T) {
	svc, engine, _ := newTestService(t)

	_, err := svc.Import([]domain.Trade{importTrade("t1", 100), importTrade("t2", -50)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete("t1"))
	last := engine.lastCompute()
	require.Len(t, last, 1)
	assert.Equal(t, "t2", last[0].ID)
}

func TestClearHandsEmptyListToEngine(t *testing.T) {
	svc, engine, _ := newTestService(t)

	_, err := svc.Import([]domain.Trade{importTrade("t1", 100)})
	require.NoError(t, err)

	require.NoError(t, svc.Clear())
	assert.Empty(t, engine.lastCompute())
}

func TestRecomputeForces(t *testing.T) {
	svc, engine, _ := newTestService(t)

	_, err := svc.Import([]domain.Trade{importTrade("t1", 100)})
	require.NoError(t, err)

	require.NoError(t, svc.Recompute())
	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.forced, 1)
	assert.Len(t, engine.forced[0], 1)
}

func TestRefreshDoesNotForce(t *testing.T) {
	svc, engine, _ := newTestService(t)

	_, err := svc.Import([]domain.Trade{importTrade("t1", 100)})
	require.NoError(t, err)

	require.NoError(t, svc.Refresh())
	engine.mu.Lock()
	defer engine.mu.Unlock()
	// Import plus refresh both go through the ordinary path, leaving
	// the fingerprint guard in charge of skipping unchanged data.
	require.Len(t, engine.computes, 2)
	assert.Empty(t, engine.forced)
}

func TestUpdateSettingsRecomputes(t *testing.T) {
	svc, engine, _ := newTestService(t)

	_, err := svc.Import([]domain.Trade{importTrade("t1", 100)})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateSettings(analytics.Settings{MCRuns: 500, StartingEquity: 25_000}))
	assert.Equal(t, 500, svc.Settings().MCRuns)

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.GreaterOrEqual(t, len(engine.settings), 2)
	assert.Equal(t, 500, engine.settings[len(engine.settings)-1].MCRuns)
}
