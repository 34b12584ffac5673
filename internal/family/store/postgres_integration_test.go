//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"aroundtable/internal/family/models"
	"aroundtable/internal/family/store"
	id "aroundtable/pkg/domain"
	"aroundtable/pkg/platform/sentinel"
	"aroundtable/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "families"))
}

func newFamily(name string) *models.Family {
	f, err := models.NewFamily(id.NewFamilyID(), name, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		panic(err)
	}
	return f
}

func (s *PostgresStoreSuite) TestRoundTripAndOrder() {
	ctx := context.Background()
	first, second := newFamily("Ross"), newFamily("Abara")
	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))

	found, err := s.store.FindByID(ctx, first.ID)
	s.Require().NoError(err)
	s.Equal(first.Name, found.Name)
	s.True(first.CreatedAt.Equal(found.CreatedAt))

	families, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(families, 2)
	s.Equal(first.ID, families[0].ID)
	s.Equal(second.ID, families[1].ID)
}

func (s *PostgresStoreSuite) TestUniqueNameKey() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newFamily("Perry")))
	s.ErrorIs(s.store.Create(ctx, newFamily("perry")), sentinel.ErrAlreadyUsed)

	other := newFamily("Chen")
	s.Require().NoError(s.store.Create(ctx, other))
	s.Require().NoError(other.Rename("PERRY", time.Now()))
	s.ErrorIs(s.store.Update(ctx, other), sentinel.ErrAlreadyUsed)
}

// Concurrent adds of the same name must leave exactly one row.
func (s *PostgresStoreSuite) TestConcurrentUniqueNameViolation() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newFamily("Same Name"))
			switch {
			case err == nil:
				successCount.Add(1)
			case err == sentinel.ErrAlreadyUsed:
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestMissingRows() {
	ctx := context.Background()
	ghost := newFamily("Ghost")

	_, err := s.store.FindByID(ctx, ghost.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, ghost.ID), sentinel.ErrNotFound)
}
