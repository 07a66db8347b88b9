package service

import (
	"context"
	"errors"
	"testing"

	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInventoryStore struct {
	rows       []models.Inventory
	reserveErr error
	reserved   map[int64]int
	released   map[int64]int
	committed  map[int64]int
}

func newFakeInventoryStore() *fakeInventoryStore {
	return &fakeInventoryStore{reserved: map[int64]int{}, released: map[int64]int{}, committed: map[int64]int{}}
}

func (s *fakeInventoryStore) ListInventory(ctx context.Context) ([]models.Inventory, error) {
	return s.rows, nil
}

func (s *fakeInventoryStore) ReserveStockTx(ctx context.Context, itemID int64, quantity int) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved[itemID] += quantity
	return nil
}

func (s *fakeInventoryStore) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	s.released[itemID] += quantity
	return nil
}

func (s *fakeInventoryStore) CommitStock(ctx context.Context, itemID int64, quantity int) error {
	s.committed[itemID] += quantity
	return nil
}

type fakeStockCache struct {
	reserveOK  bool
	reserveErr error
	released   map[int64]int
	seeded     map[int64][2]int
}

func newFakeStockCache() *fakeStockCache {
	return &fakeStockCache{reserveOK: true, released: map[int64]int{}, seeded: map[int64][2]int{}}
}

func (c *fakeStockCache) ReserveStock(ctx context.Context, itemID int64, quantity int) (bool, error) {
	return c.reserveOK, c.reserveErr
}

func (c *fakeStockCache) ReleaseStock(ctx context.Context, itemID int64, quantity int) error {
	c.released[itemID] += quantity
	return nil
}

func (c *fakeStockCache) CommitStock(ctx context.Context, itemID int64, quantity int) error {
	return redisclient.ErrUntracked
}

func (c *fakeStockCache) InitInventory(ctx context.Context, itemID int64, available, reserved int) error {
	c.seeded[itemID] = [2]int{available, reserved}
	return nil
}

func TestReserveStock(t *testing.T) {
	tests := []struct {
		name     string
		cacheOK  bool
		cacheErr error
		dbErr    error
		wantOK   bool
		wantErr  bool
		wantDB   int
		wantUndo int
	}{
		{name: "redis and db agree", cacheOK: true, wantOK: true, wantDB: 2},
		{name: "redis short", cacheOK: false, wantOK: false},
		{name: "untracked in redis falls back to db", cacheErr: redisclient.ErrUntracked, wantOK: true, wantDB: 2},
		{name: "redis down falls back to db", cacheErr: errors.New("dial tcp: refused"), wantOK: true, wantDB: 2},
		{name: "fallback untracked in db", cacheErr: redisclient.ErrUntracked, dbErr: store.ErrNotFound, wantOK: true},
		{name: "fallback short in db", cacheErr: redisclient.ErrUntracked, dbErr: store.ErrInsufficientStock, wantOK: false},
		{name: "db sync short undoes redis", cacheOK: true, dbErr: store.ErrInsufficientStock, wantOK: false, wantUndo: 2},
		{name: "db sync failure undoes redis", cacheOK: true, dbErr: errors.New("deadlock"), wantErr: true, wantUndo: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFakeInventoryStore()
			db.reserveErr = tt.dbErr
			cache := newFakeStockCache()
			cache.reserveOK = tt.cacheOK
			cache.reserveErr = tt.cacheErr

			ok, err := NewInventoryClient(db, cache).ReserveStock(context.Background(), 9, 2)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantDB, db.reserved[9])
			assert.Equal(t, tt.wantUndo, cache.released[9])
		})
	}
}

func TestReleaseAndCommitReachPostgres(t *testing.T) {
	db := newFakeInventoryStore()
	cache := newFakeStockCache()
	client := NewInventoryClient(db, cache)
	ctx := context.Background()

	require.NoError(t, client.ReleaseStock(ctx, 4, 1))
	assert.Equal(t, 1, cache.released[4])
	assert.Equal(t, 1, db.released[4])

	// an untracked redis key still commits in postgres
	require.NoError(t, client.CommitStock(ctx, 4, 2))
	assert.Equal(t, 2, db.committed[4])
}

func TestSyncInventoryToRedis(t *testing.T) {
	db := newFakeInventoryStore()
	db.rows = []models.Inventory{
		{ItemID: 1, Available: 10, Reserved: 2},
		{ItemID: 2, Available: 0, Reserved: 0},
	}
	cache := newFakeStockCache()

	require.NoError(t, NewInventoryClient(db, cache).SyncInventoryToRedis(context.Background()))
	assert.Equal(t, map[int64][2]int{1: {10, 2}, 2: {0, 0}}, cache.seeded)
}
