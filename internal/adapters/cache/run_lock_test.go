package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpricemap/openpricemap/backend/internal/adapters/cache"
	apperrors "github.com/openpricemap/openpricemap/backend/pkg/errors"
)

func TestLocalRunLock_SerializesPerKey(t *testing.T) {
	locker := cache.NewLocalRunLock()

	release, err := locker.Acquire(context.Background(), "uk_land_registry:price", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, release)

	_, err = locker.Acquire(context.Background(), "uk_land_registry:price", time.Hour)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	// A different key is independent
	otherRelease, err := locker.Acquire(context.Background(), "uk_land_registry:rent", time.Hour)
	require.NoError(t, err)
	otherRelease()

	release()

	release, err = locker.Acquire(context.Background(), "uk_land_registry:price", time.Hour)
	require.NoError(t, err)
	release()
}
