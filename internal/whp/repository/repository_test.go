package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/importer"
	"github.com/bitfantasy/whp/internal/whp/testutil"
)

func sampleSnapshot() importer.Snapshot {
	return importer.Snapshot{
		State:     importer.StateValidated,
		Selection: 3,
		FileName:  "staff.xlsx",
		File:      []byte("PK\x03\x04"),
		Preview: []entity.ImportedRecord{
			{RowNumber: 2, Status: entity.RowStatusOK, Data: entity.RowData{"employee_code": "E1"}},
		},
		Batch: &entity.ImportBatch{BatchUUID: "b-1", TotalRows: 1},
	}
}

func exerciseStore(t *testing.T, store SessionStore) {
	ctx := context.Background()

	_, err := store.Load(ctx, "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Save(ctx, "s1", sampleSnapshot()))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleSnapshot(), *got)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemorySessionStore(t *testing.T) {
	exerciseStore(t, NewMemorySessionStore(SessionOptions{}))
}

func TestMemorySessionStoreExpires(t *testing.T) {
	store := NewMemorySessionStore(SessionOptions{TTL: time.Minute})
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), "s1", sampleSnapshot()))
	now = now.Add(59 * time.Second)
	_, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = store.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisSessionStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	store := NewRedisSessionStore(rdb, SessionOptions{TTL: time.Minute, Prefix: "whp:test:" + t.Name() + ":"})
	exerciseStore(t, store)
}

func TestNewRepositoriesFallsBackToMemory(t *testing.T) {
	repos := NewRepositories(nil, nil, SessionOptions{})
	assert.IsType(t, &MemorySessionStore{}, repos.Sessions)
	assert.Nil(t, repos.Audit)
}

func TestImportAuditRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewImportAuditRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.ImportAudit{
		ID:        "a-1",
		SessionID: "s1",
		FileName:  "staff.xlsx",
		BatchUUID: "b-1",
		TotalRows: 3,
		OKRows:    2,
		ErrorRows: 1,
		Status:    entity.AuditStatusValidated,
	}))

	require.NoError(t, repo.RecordFailure(ctx, "b-1", "remote down"))
	got, err := repo.FindByBatchUUID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "remote down", got.LastError)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkConfirmed(ctx, "b-1", at))
	got, err = repo.FindByBatchUUID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, entity.AuditStatusConfirmed, got.Status)
	assert.Empty(t, got.LastError)
	require.NotNil(t, got.ConfirmedAt)

	assert.ErrorIs(t, repo.MarkConfirmed(ctx, "missing", at), ErrNotFound)
	_, err = repo.FindByBatchUUID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b-1", list[0].BatchUUID)
}
