package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/brgy-records-api/pkg/errors"
)

func TestCacheRepositoryWithoutClientMisses(t *testing.T) {
	repo := NewCacheRepository(nil)
	var dest map[string]int

	assert.False(t, repo.Enabled())
	assert.ErrorIs(t, repo.Get(context.Background(), "dash:overview", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "dash:overview", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "dash:overview"))
}

func TestCacheKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "brgy:dash:overview", cacheKey("dash:overview"))
}
