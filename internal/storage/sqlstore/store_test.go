package sqlstore

import (
	"context"
	"sync"
	"testing"

	"github.com/UkralStul/yatube/internal/domain"
	"github.com/UkralStul/yatube/internal/storage"
	"github.com/UkralStul/yatube/internal/storage/storagetest"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore открывает чистую SQLite в памяти.
// Одно соединение: у каждого соединения ":memory:" своя база.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	store, err := NewSQLite("file::memory:", log)
	require.NoError(t, err)
	sqlDB, err := store.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage { return newTestStore(t) })
}

func TestStore_FollowUniqueUnderConcurrency(t *testing.T) {
	store := newTestStore(t)
	f := storagetest.Seed(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateFollow(ctx, f.Another.ID, f.Author.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var n int64
	require.NoError(t, store.db.Model(&domain.Follow{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestStore_SelfFollowRejectedByConstraint(t *testing.T) {
	store := newTestStore(t)
	f := storagetest.Seed(t, store)

	_, err := store.CreateFollow(context.Background(), f.Author.ID, f.Author.ID)
	assert.Error(t, err)
}

func TestStore_CreatePost_UnknownAuthor(t *testing.T) {
	store := newTestStore(t)

	_, err := store.CreatePost(context.Background(), &domain.Post{Text: "x", AuthorID: 42})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
