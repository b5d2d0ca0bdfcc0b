package watchlist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/caveo/internal/common"
	"github.com/ternarybob/caveo/internal/interfaces"
	"github.com/ternarybob/caveo/internal/models"
	"github.com/ternarybob/caveo/internal/storage/badger"
)

const sampleWatchlist = `companies:
  - company_id: BYND
    ticker: BYND
    cik: "0001655210"
    bucket: consumer
    in_scope: true
  - ticker: lcid
    cik: "1811210"
  - ticker: HYZN
    cik: "0001716583"
    bucket: ev
    in_scope: false
`

func newTestService(t *testing.T) (*Service, interfaces.CompanyStorage, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "companies.yaml")

	manager, err := badger.NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(dir, "db"),
	})
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { manager.Close() })

	storage := manager.CompanyStorage()
	return NewService(path, storage, arbor.NewLogger()), storage, path
}

func writeWatchlist(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	svc, _, path := newTestService(t)
	writeWatchlist(t, path, sampleWatchlist)

	companies, err := svc.Load()
	require.NoError(t, err, "Load should succeed")
	require.Len(t, companies, 3)

	bynd := companies[0]
	assert.Equal(t, "BYND", bynd.ID)
	assert.Equal(t, "1655210", bynd.CIK, "CIK should normalize to zero-trimmed form")
	assert.Equal(t, "consumer", bynd.Bucket)
	assert.True(t, bynd.InScope)

	lcid := companies[1]
	assert.Equal(t, "LCID", lcid.Ticker, "Ticker should upper-case")
	assert.True(t, lcid.InScope, "Absent in_scope should default to true")

	hyzn := companies[2]
	assert.False(t, hyzn.InScope, "Explicit in_scope false should stick")
}

func TestLoadRejectsInvalidEntries(t *testing.T) {
	svc, _, path := newTestService(t)

	writeWatchlist(t, path, "companies:\n  - ticker: NOCIK\n")
	_, err := svc.Load()
	require.Error(t, err, "Entry without CIK should fail validation")
	assert.Contains(t, err.Error(), "NOCIK")

	writeWatchlist(t, path, "companies:\n  - ticker: BAD\n    cik: notanumber\n")
	_, err = svc.Load()
	require.Error(t, err, "Non-numeric CIK should fail validation")
}

func TestLoadSkipsDuplicateTickers(t *testing.T) {
	svc, _, path := newTestService(t)
	writeWatchlist(t, path, `companies:
  - ticker: BYND
    cik: "1655210"
    bucket: first
  - ticker: bynd
    cik: "1655210"
    bucket: second
`)

	companies, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, companies, 1, "Duplicate ticker should collapse to first entry")
	assert.Equal(t, "first", companies[0].Bucket)
}

func TestSyncUpsertsIntoStorage(t *testing.T) {
	svc, storage, path := newTestService(t)
	writeWatchlist(t, path, sampleWatchlist)
	ctx := context.Background()

	count, err := svc.Sync(ctx)
	require.NoError(t, err, "Sync should succeed")
	assert.Equal(t, 3, count)

	stored, err := storage.Get(ctx, "LCID")
	require.NoError(t, err, "Synced company should be in storage")
	assert.Equal(t, "1811210", stored.CIK)

	total, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestSaveRoundTrip(t *testing.T) {
	svc, _, path := newTestService(t)
	writeWatchlist(t, path, sampleWatchlist)

	companies, err := svc.Load()
	require.NoError(t, err)

	require.NoError(t, svc.Save(companies), "Save should succeed")

	reloaded, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, reloaded, len(companies))
	for i := range companies {
		assert.Equal(t, companies[i].ID, reloaded[i].ID)
		assert.Equal(t, companies[i].CIK, reloaded[i].CIK)
		assert.Equal(t, companies[i].InScope, reloaded[i].InScope)
	}
}

func TestAddCreatesFileAndStores(t *testing.T) {
	svc, storage, path := newTestService(t)
	ctx := context.Background()

	// No file on disk yet
	err := svc.Add(ctx, &models.Company{Ticker: "rklb", CIK: "0001819994", InScope: true})
	require.NoError(t, err, "Add to a missing file should create it")

	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("Watchlist file should exist after Add: %v", statErr)
	}

	companies, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, "RKLB", companies[0].Ticker)

	stored, err := storage.Get(ctx, "RKLB")
	require.NoError(t, err, "Added company should be in storage")
	assert.Equal(t, "1819994", stored.CIK)
}

func TestAddReplacesExistingTicker(t *testing.T) {
	svc, _, path := newTestService(t)
	writeWatchlist(t, path, sampleWatchlist)
	ctx := context.Background()

	err := svc.Add(ctx, &models.Company{Ticker: "BYND", CIK: "1655210", Bucket: "updated", InScope: false})
	require.NoError(t, err)

	companies, err := svc.Load()
	require.NoError(t, err)
	require.Len(t, companies, 3, "Replacement should not grow the list")
	assert.Equal(t, "updated", companies[0].Bucket)
	assert.False(t, companies[0].InScope)
}

func TestRemoveDropsFromFileAndStorage(t *testing.T) {
	svc, storage, path := newTestService(t)
	writeWatchlist(t, path, sampleWatchlist)
	ctx := context.Background()

	_, err := svc.Sync(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "hyzn"), "Remove should accept any ticker case")

	companies, err := svc.Load()
	require.NoError(t, err)
	assert.Len(t, companies, 2)

	_, err = storage.Get(ctx, "HYZN")
	require.Error(t, err, "Removed company should be gone from storage")

	err = svc.Remove(ctx, "HYZN")
	require.Error(t, err, "Removing an unknown ticker should fail")
}
