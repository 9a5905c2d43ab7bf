// Package di is the storefront's service container.
//
// Services are declared on a ServiceCollection with an explicit lifetime and
// an explicit constructor, then Build seals the declarations into an
// immutable Registry and a Container backed by samber/do. Each unit of work
// (an HTTP request) gets its own RequestScope holding its scoped instances.
package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/do/v2"
)

// Container owns the root scope and the registry.
type Container struct {
	root     *do.RootScope
	registry *Registry
	perScope []func(do.Injector)
}

// Registry returns the sealed registration list.
func (c *Container) Registry() *Registry {
	return c.registry
}

// Root exposes the root injector for singleton and transient resolution.
func (c *Container) Root() do.Injector {
	return c.root
}

// RequestScope holds the scoped instances of one unit of work. It is a
// standalone injector, not a child of the root, so nothing of it stays
// reachable from the container after Close.
type RequestScope struct {
	scope *do.RootScope
	id    string
}

// NewScope creates a scope with fresh scoped instances. Singletons and
// transients resolve through it from the root. Close it when the unit of
// work ends.
func (c *Container) NewScope() *RequestScope {
	scope := do.New()
	for _, install := range c.perScope {
		install(scope)
	}
	return &RequestScope{scope: scope, id: uuid.NewString()}
}

func (r *RequestScope) ID() string { return r.id }

func (r *RequestScope) Injector() do.Injector { return r.scope }

// Close shuts down the scoped instances that implement a do shutdowner.
func (r *RequestScope) Close() error {
	return reportErr(r.scope.Shutdown())
}

// Resolve returns the effective registration of T visible from i.
func Resolve[T any](i do.Injector) (T, error) {
	return do.InvokeNamed[T](i, TypeName[T]())
}

// MustResolve panics when T cannot be resolved. Startup code only.
func MustResolve[T any](i do.Injector) T {
	v, err := Resolve[T](i)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveRoot resolves T from the root scope, rejecting scoped services.
func ResolveRoot[T any](c *Container) (T, error) {
	if d, ok := c.registry.Lookup(TypeName[T]()); ok && d.Lifetime == Scoped {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrScopedFromRoot, d.ServiceType)
	}
	return Resolve[T](c.root)
}

// Verify resolves every effective registration once inside a throw-away
// scope and returns all failures.
func (c *Container) Verify() error {
	scope := c.NewScope()
	defer func() { _ = scope.Close() }()

	var errs []error
	for _, d := range c.registry.effective() {
		if d.resolve == nil {
			continue
		}
		if _, err := d.resolve(scope.Injector()); err != nil {
			errs = append(errs, fmt.Errorf("%s (%s): %w", d.ServiceType, d.Lifetime, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown stops every singleton in reverse initialization order.
func (c *Container) Shutdown() error {
	return reportErr(c.root.Shutdown())
}

// ShutdownWithContext is Shutdown bounded by ctx.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	done := make(chan *do.ShutdownReport, 1)
	go func() {
		done <- c.root.ShutdownWithContext(ctx)
	}()

	select {
	case report := <-done:
		return reportErr(report)
	case <-ctx.Done():
		return fmt.Errorf("di: shutdown timed out: %w", ctx.Err())
	}
}

func reportErr(report *do.ShutdownReport) error {
	if report != nil && !report.Succeed {
		return fmt.Errorf("di: shutdown failed: %s", report.Error())
	}
	return nil
}
