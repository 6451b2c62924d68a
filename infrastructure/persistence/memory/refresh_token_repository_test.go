package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearauth/token-service/application/port/outbound"
	"github.com/clearauth/token-service/domain/entity"
)

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepository()

	token := entity.NewRefreshToken("row-1", "app1", "subject-123", "value-1")
	require.NoError(t, repo.Create(ctx, token))

	found, err := repo.FindByClientAndValue(ctx, "app1", "value-1")
	require.NoError(t, err)
	assert.Equal(t, "subject-123", found.SubjectID)

	// Lookup is keyed on the exact pair.
	_, err = repo.FindByClientAndValue(ctx, "other-app", "value-1")
	assert.ErrorIs(t, err, outbound.ErrRefreshTokenNotFound)

	err = repo.Create(ctx, token)
	assert.ErrorIs(t, err, outbound.ErrRefreshTokenAlreadyExists)
}

func TestReplace_CompareAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepository()

	old := entity.NewRefreshToken("row-1", "app1", "subject-123", "value-1")
	require.NoError(t, repo.Create(ctx, old))

	next := entity.NewRefreshToken("row-2", "app1", "subject-123", "value-2")
	require.NoError(t, repo.Replace(ctx, "app1", "value-1", next))

	_, err := repo.FindByClientAndValue(ctx, "app1", "value-1")
	assert.ErrorIs(t, err, outbound.ErrRefreshTokenNotFound)

	found, err := repo.FindByClientAndValue(ctx, "app1", "value-2")
	require.NoError(t, err)
	assert.Equal(t, "row-2", found.ID)
	assert.Equal(t, 1, repo.Len())

	// Replacing an already-consumed value fails and leaves nothing behind.
	err = repo.Replace(ctx, "app1", "value-1", entity.NewRefreshToken("row-3", "app1", "subject-123", "value-3"))
	assert.ErrorIs(t, err, outbound.ErrRefreshTokenNotFound)
	assert.Equal(t, 1, repo.Len())
}

func TestReplace_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshTokenRepository()

	require.NoError(t, repo.Create(ctx, entity.NewRefreshToken("row-0", "app1", "subject-123", "contested")))

	const workers = 16

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := entity.NewRefreshToken(
				fmt.Sprintf("row-%d", i+1),
				"app1",
				"subject-123",
				fmt.Sprintf("value-%d", i+1),
			)
			errs <- repo.Replace(ctx, "app1", "contested", next)
		}()
	}

	wg.Wait()
	close(errs)

	var successes int
	for err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, outbound.ErrRefreshTokenNotFound)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, repo.Len())
}
