package store

import (
	"context"

	"github.com/samber/mo"
)

// AsyncRepository exposes the repository operations as futures.
type AsyncRepository[E Entity[E]] interface {
	GetByIDAsync(ctx context.Context, id int) *mo.Future[E]
	ListAllAsync(ctx context.Context) *mo.Future[[]E]
	ListAsync(ctx context.Context, spec Specification[E]) *mo.Future[[]E]
	CountAsync(ctx context.Context, spec Specification[E]) *mo.Future[int]
	FirstAsync(ctx context.Context, spec Specification[E]) *mo.Future[E]
	AddAsync(ctx context.Context, e E) *mo.Future[E]
	UpdateAsync(ctx context.Context, e E) *mo.Future[E]
	DeleteAsync(ctx context.Context, e E) *mo.Future[E]
}

var _ AsyncRepository[probe] = (*EntityRepository[probe])(nil)

func future[T any](fn func() (T, error)) *mo.Future[T] {
	return mo.NewFuture(func(resolve func(T), reject func(error)) {
		v, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	})
}

func (r *EntityRepository[E]) GetByIDAsync(ctx context.Context, id int) *mo.Future[E] {
	return future(func() (E, error) { return r.GetByID(ctx, id) })
}

func (r *EntityRepository[E]) ListAllAsync(ctx context.Context) *mo.Future[[]E] {
	return future(func() ([]E, error) { return r.ListAll(ctx) })
}

func (r *EntityRepository[E]) ListAsync(ctx context.Context, spec Specification[E]) *mo.Future[[]E] {
	return future(func() ([]E, error) { return r.List(ctx, spec) })
}

func (r *EntityRepository[E]) CountAsync(ctx context.Context, spec Specification[E]) *mo.Future[int] {
	return future(func() (int, error) { return r.Count(ctx, spec) })
}

func (r *EntityRepository[E]) FirstAsync(ctx context.Context, spec Specification[E]) *mo.Future[E] {
	return future(func() (E, error) { return r.First(ctx, spec) })
}

func (r *EntityRepository[E]) AddAsync(ctx context.Context, e E) *mo.Future[E] {
	return future(func() (E, error) { return r.Add(ctx, e) })
}

func (r *EntityRepository[E]) UpdateAsync(ctx context.Context, e E) *mo.Future[E] {
	return future(func() (E, error) { return e, r.Update(ctx, e) })
}

func (r *EntityRepository[E]) DeleteAsync(ctx context.Context, e E) *mo.Future[E] {
	return future(func() (E, error) { return e, r.Delete(ctx, e) })
}
