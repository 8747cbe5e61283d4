package dataloader

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/storage"
	"github.com/UkralStul/content-graph-service/internal/storage/inmemory"
	"github.com/graph-gophers/dataloader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	storage.Storage
	sourceCalls atomic.Int32
	tagCalls    atomic.Int32
}

func (s *countingStore) GetSourcesByIDs(ctx context.Context, ids []string) (map[string]*domain.Source, error) {
	s.sourceCalls.Add(1)
	return s.Storage.GetSourcesByIDs(ctx, ids)
}

func (s *countingStore) GetPostTags(ctx context.Context, postIDs []string) (map[string][]string, error) {
	s.tagCalls.Add(1)
	return s.Storage.GetPostTags(ctx, postIDs)
}

func TestLoaders_Batch(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	store := &countingStore{Storage: mem}

	s1, err := mem.CreateSource(ctx, &domain.Source{Name: "One", Handle: "one"})
	require.NoError(t, err)
	s2, err := mem.CreateSource(ctx, &domain.Source{Name: "Two", Handle: "two"})
	require.NoError(t, err)
	p1, err := mem.CreatePost(ctx, &domain.Post{Title: "p1", SourceID: s1.ID})
	require.NoError(t, err)
	p2, err := mem.CreatePost(ctx, &domain.Post{Title: "p2", SourceID: s2.ID})
	require.NoError(t, err)

	require.NoError(t, mem.AddPostKeywords(ctx, p1.ID, []string{"go", "webdev"}))
	_, err = mem.SetKeywordStatus(ctx, "go", domain.KeywordStatusAllow)
	require.NoError(t, err)

	loaders := NewLoaders(store)

	thunks := []dataloader.Thunk{
		loaders.SourceByID.Load(ctx, dataloader.StringKey(s1.ID)),
		loaders.SourceByID.Load(ctx, dataloader.StringKey(s2.ID)),
		loaders.SourceByID.Load(ctx, dataloader.StringKey("missing")),
	}
	first, err := thunks[0]()
	require.NoError(t, err)
	assert.Equal(t, "One", first.(*domain.Source).Name)
	second, err := thunks[1]()
	require.NoError(t, err)
	assert.Equal(t, "Two", second.(*domain.Source).Name)
	_, err = thunks[2]()
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, int32(1), store.sourceCalls.Load())

	tags1 := loaders.TagsByPostID.Load(ctx, dataloader.StringKey(p1.ID))
	tags2 := loaders.TagsByPostID.Load(ctx, dataloader.StringKey(p2.ID))
	got1, err := tags1()
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, got1)
	got2, err := tags2()
	require.NoError(t, err)
	assert.Empty(t, got2)
	assert.Equal(t, int32(1), store.tagCalls.Load())
}

func TestFor(t *testing.T) {
	assert.Nil(t, For(context.Background()))

	loaders := NewLoaders(inmemory.New())
	assert.Same(t, loaders, For(WithLoaders(context.Background(), loaders)))
}
