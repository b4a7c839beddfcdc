package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condorbot/market"
	"condorbot/portfolio"
)

func newTestSQLite(t *testing.T) (*SQLiteJournal, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func sampleTrade(id string, at time.Time) portfolio.Trade {
	return portfolio.Trade{
		ID:          id,
		OrderID:     "ord-" + id,
		Symbol:      "BTC-CLP",
		Side:        market.SideBuy,
		Amount:      0.001,
		Price:       50_000_000,
		Fee:         400,
		Time:        at,
		BaseAfter:   949_600,
		AssetAfter:  0.001,
		RealizedPnL: 0,
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='trades'`).Scan(&name)
	assert.NoError(t, err)
	assert.Equal(t, "trades", name)
}

func TestSQLiteRecordAndList(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, j.RecordTrade(sampleTrade("01A", base)))
	require.NoError(t, j.RecordTrade(sampleTrade("01B", base.Add(time.Minute))))
	require.NoError(t, j.RecordTrade(sampleTrade("01C", base.Add(2*time.Minute))))

	got, err := j.ListTrades(2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "01C", got[0].ID)
	assert.Equal(t, "01B", got[1].ID)
	assert.True(t, got[0].Time.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, market.SideBuy, got[0].Side)
	assert.InDelta(t, 50_000_000, got[0].Price, 1e-6)
}

func TestSQLiteListAllWithoutLimit(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	base := time.Now().UTC().Truncate(time.Second)

	for i, id := range []string{"01A", "01B", "01C"} {
		require.NoError(t, j.RecordTrade(sampleTrade(id, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := j.ListTrades(0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSQLiteDuplicateTradeID(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	tr := sampleTrade("01A", time.Now().UTC())

	require.NoError(t, j.RecordTrade(tr))
	assert.Error(t, j.RecordTrade(tr))
}

func TestMemoryJournalNewestFirst(t *testing.T) {
	t.Parallel()

	j := NewMemory()
	base := time.Now().UTC()

	for i, id := range []string{"01A", "01B", "01C"} {
		require.NoError(t, j.RecordTrade(sampleTrade(id, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := j.ListTrades(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "01C", got[0].ID)
	assert.Equal(t, "01B", got[1].ID)

	all, err := j.ListTrades(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryJournalEmpty(t *testing.T) {
	t.Parallel()

	j := NewMemory()
	got, err := j.ListTrades(10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
