package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/lesson"
	"github.com/schoolofai/ScottishAILessons-sub002/internal/domain/shared"
)

type fakeLessonRepo struct {
	pools map[shared.CourseID][]*lesson.Template
	calls int
}

func (f *fakeLessonRepo) GetByID(ctx context.Context, id string) (*lesson.Template, error) {
	for _, pool := range f.pools {
		for _, tpl := range pool {
			if tpl.ID == id {
				return tpl, nil
			}
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeLessonRepo) ListPublishedByCourse(ctx context.Context, courseID shared.CourseID) ([]*lesson.Template, error) {
	f.calls++
	return f.pools[courseID], nil
}

type fakeLessonCache struct {
	pools map[shared.CourseID][]*lesson.Template
	sets  int
	fail  bool
}

func (f *fakeLessonCache) GetPool(ctx context.Context, courseID shared.CourseID) ([]*lesson.Template, error) {
	if f.fail {
		return nil, errors.New("cache down")
	}
	pool, ok := f.pools[courseID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return pool, nil
}

func (f *fakeLessonCache) SetPool(ctx context.Context, courseID shared.CourseID, pool []*lesson.Template, ttl time.Duration) error {
	if f.fail {
		return errors.New("cache down")
	}
	f.pools[courseID] = pool
	f.sets++
	return nil
}

func (f *fakeLessonCache) InvalidatePool(ctx context.Context, courseID shared.CourseID) error {
	delete(f.pools, courseID)
	return nil
}

func TestCachedLessonRepository_ReadThrough(t *testing.T) {
	courseID := shared.CourseID("course-1")
	pool := []*lesson.Template{
		{ID: "tpl-1", CourseID: courseID, Title: "Fractions"},
		{ID: "tpl-2", CourseID: courseID, Title: "Decimals"},
	}
	repo := &fakeLessonRepo{pools: map[shared.CourseID][]*lesson.Template{courseID: pool}}
	cache := &fakeLessonCache{pools: map[shared.CourseID][]*lesson.Template{}}

	cached := NewCachedLessonRepository(repo, cache, time.Minute)

	got, err := cached.ListPublishedByCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache.
	got, err = cached.ListPublishedByCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, repo.calls)
}

func TestCachedLessonRepository_EmptyPoolIsCached(t *testing.T) {
	courseID := shared.CourseID("course-empty")
	repo := &fakeLessonRepo{pools: map[shared.CourseID][]*lesson.Template{}}
	cache := &fakeLessonCache{pools: map[shared.CourseID][]*lesson.Template{}}

	cached := NewCachedLessonRepository(repo, cache, time.Minute)

	got, err := cached.ListPublishedByCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, cache.sets)

	got, err = cached.ListPublishedByCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, repo.calls)
}

func TestCachedLessonRepository_CacheFailureFallsThrough(t *testing.T) {
	courseID := shared.CourseID("course-1")
	pool := []*lesson.Template{{ID: "tpl-1", CourseID: courseID}}
	repo := &fakeLessonRepo{pools: map[shared.CourseID][]*lesson.Template{courseID: pool}}
	cache := &fakeLessonCache{fail: true}

	cached := NewCachedLessonRepository(repo, cache, time.Minute)

	got, err := cached.ListPublishedByCourse(context.Background(), courseID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, repo.calls)
}

func TestCachedLessonRepository_GetByIDBypassesCache(t *testing.T) {
	courseID := shared.CourseID("course-1")
	pool := []*lesson.Template{{ID: "tpl-1", CourseID: courseID}}
	repo := &fakeLessonRepo{pools: map[shared.CourseID][]*lesson.Template{courseID: pool}}
	cache := &fakeLessonCache{fail: true}

	cached := NewCachedLessonRepository(repo, cache, time.Minute)

	tpl, err := cached.GetByID(context.Background(), "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", tpl.ID)
}
