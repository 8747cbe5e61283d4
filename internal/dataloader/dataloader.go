package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/content-graph-service/internal/domain"
	"github.com/UkralStul/content-graph-service/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders holds the per-request batch loaders.
type Loaders struct {
	SourceByID   *dataloader.Loader
	TagsByPostID *dataloader.Loader
}

// NewLoaders creates a fresh set of loaders backed by store.
func NewLoaders(store storage.Storage) *Loaders {
	sources := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()
		byID, err := store.GetSourcesByIDs(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			source, ok := byID[id]
			if !ok {
				results[i] = &dataloader.Result{Error: storage.ErrNotFound}
				continue
			}
			results[i] = &dataloader.Result{Data: source}
		}
		return results
	}

	tags := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()
		byPost, err := store.GetPostTags(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		// Results must line up with keys.
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			results[i] = &dataloader.Result{Data: byPost[id]}
		}
		return results
	}

	return &Loaders{
		SourceByID:   dataloader.NewBatchedLoader(sources, dataloader.WithWait(time.Millisecond)),
		TagsByPostID: dataloader.NewBatchedLoader(tags, dataloader.WithWait(time.Millisecond)),
	}
}

// LoadSource schedules id on the source batch.
func (l *Loaders) LoadSource(ctx context.Context, id string) func() (*domain.Source, error) {
	thunk := l.SourceByID.Load(ctx, dataloader.StringKey(id))
	return func() (*domain.Source, error) {
		v, err := thunk()
		if err != nil {
			return nil, err
		}
		return v.(*domain.Source), nil
	}
}

// LoadTags schedules postID on the tags batch.
func (l *Loaders) LoadTags(ctx context.Context, postID string) func() ([]string, error) {
	thunk := l.TagsByPostID.Load(ctx, dataloader.StringKey(postID))
	return func() ([]string, error) {
		v, err := thunk()
		if err != nil {
			return nil, err
		}
		tags, _ := v.([]string)
		return tags, nil
	}
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// Middleware injects new loaders into every request context.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLoaders(r.Context(), NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, key, loaders)
}

// For returns the loaders of the request, or nil outside of Middleware.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}
