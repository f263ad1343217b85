//go:build integration

package storage_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"swiftremit/internal/storage"
	"swiftremit/pkg/platform/sentinel"
	"swiftremit/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *storage.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = storage.NewPostgres(s.postgres.DB, "test-ledger")
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "ledger_kv"))
}

func (s *PostgresStoreSuite) TestCommitAndRollback() {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		s.Require().NoError(kv.Set(ctx, "config/admin", []byte("GADMIN")))
		return boom
	})
	s.ErrorIs(err, boom)

	s.Require().NoError(s.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		has, err := r.Has(ctx, "config/admin")
		s.Require().NoError(err)
		s.False(has)
		return nil
	}))

	s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		return kv.Set(ctx, "config/admin", []byte("GADMIN"))
	}))
	s.Require().NoError(s.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		v, err := r.Get(ctx, "config/admin")
		s.Require().NoError(err)
		s.Equal("GADMIN", string(v))
		return nil
	}))
}

func (s *PostgresStoreSuite) TestInsertSetOnceAcrossUnitsOfWork() {
	ctx := context.Background()
	s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		return kv.Insert(ctx, "settlement/1", []byte{1})
	}))
	err := s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		return kv.Insert(ctx, "settlement/1", []byte{1})
	})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestNamespacesAreIsolated() {
	ctx := context.Background()
	other := storage.NewPostgres(s.postgres.DB, "other-ledger")
	s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		return kv.Set(ctx, "config/admin", []byte("A"))
	}))
	s.Require().NoError(other.View(ctx, func(ctx context.Context, r storage.Reader) error {
		_, err := r.Get(ctx, "config/admin")
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	}))
}

func (s *PostgresStoreSuite) TestGetMany() {
	ctx := context.Background()
	s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		for i := 1; i <= 3; i++ {
			if err := kv.Set(ctx, storage.Key("remittance/"+strconv.Itoa(i)), []byte{byte(i)}); err != nil {
				return err
			}
		}
		return nil
	}))
	s.Require().NoError(s.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		got, err := r.GetMany(ctx, []storage.Key{"remittance/1", "remittance/3", "remittance/9"})
		s.Require().NoError(err)
		s.Len(got, 2)
		s.Equal([]byte{3}, got["remittance/3"])
		return nil
	}))
}

// TestConcurrentIncrementsAreSerialized checks that the advisory lock
// prevents lost updates between concurrent units of work.
func (s *PostgresStoreSuite) TestConcurrentIncrementsAreSerialized() {
	ctx := context.Background()
	const goroutines = 25

	s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
		return kv.Set(ctx, "config/counter", []byte("0"))
	}))

	var wg sync.WaitGroup
	var failures atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(ctx, func(ctx context.Context, kv storage.KV) error {
				raw, err := kv.Get(ctx, "config/counter")
				if err != nil {
					return err
				}
				n, _ := strconv.Atoi(string(raw))
				return kv.Set(ctx, "config/counter", []byte(strconv.Itoa(n+1)))
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load())
	s.Require().NoError(s.store.View(ctx, func(ctx context.Context, r storage.Reader) error {
		raw, err := r.Get(ctx, "config/counter")
		s.Require().NoError(err)
		s.Equal(strconv.Itoa(goroutines), string(raw))
		return nil
	}))
}
