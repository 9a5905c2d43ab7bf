package di

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/samber/do/v2"
)

var (
	// ErrCollectionSealed is recorded when a registration arrives after Build.
	ErrCollectionSealed = errors.New("di: service collection already built")

	// ErrNotAssignable is recorded when an implementation does not satisfy
	// its abstraction.
	ErrNotAssignable = errors.New("di: implementation does not satisfy service type")

	// ErrScopedFromRoot is returned when a scoped service is resolved outside
	// a RequestScope.
	ErrScopedFromRoot = errors.New("di: scoped service resolved from root")

	// ErrNoScope is returned when a context carries no RequestScope.
	ErrNoScope = errors.New("di: no request scope in context")
)

type registration struct {
	install func(do.Injector)
	// forward installs, in a request injector, a provider that resolves the
	// service from root.
	forward func(root do.Injector) func(do.Injector)
	desc    Descriptor
}

// ServiceCollection accumulates registrations until Build. Registration
// errors are sticky: the first one is returned by Err and by Build.
type ServiceCollection struct {
	regs   []registration
	err    error
	mu     sync.Mutex
	sealed bool
}

func NewServiceCollection() *ServiceCollection {
	return &ServiceCollection{}
}

// Err reports the first registration error.
func (s *ServiceCollection) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Len returns the number of registrations so far.
func (s *ServiceCollection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regs)
}

func (s *ServiceCollection) add(r registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		if s.err == nil {
			s.err = fmt.Errorf("%w: %s", ErrCollectionSealed, r.desc.ServiceType)
		}
		return
	}
	s.regs = append(s.regs, r)
}

func (s *ServiceCollection) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// adapt converts a constructor of I into a provider of T.
func adapt[T, I any](ctor func(do.Injector) (I, error)) do.Provider[T] {
	return func(i do.Injector) (T, error) {
		var zero T
		impl, err := ctor(i)
		if err != nil {
			return zero, err
		}
		svc, ok := any(impl).(T)
		if !ok {
			return zero, fmt.Errorf("%w: %T is not %s", ErrNotAssignable, impl, TypeName[T]())
		}
		return svc, nil
	}
}

func checkAssignable[T, I any]() error {
	it, tt := reflect.TypeFor[I](), reflect.TypeFor[T]()
	if !it.AssignableTo(tt) {
		return fmt.Errorf("%w: %s is not %s", ErrNotAssignable, nameOf(it), nameOf(tt))
	}
	return nil
}

func resolver[T any](name string) func(do.Injector) (any, error) {
	return func(i do.Injector) (any, error) {
		return do.InvokeNamed[T](i, name)
	}
}

func register[T any](s *ServiceCollection, lt Lifetime, implName string, provider do.Provider[T]) {
	name := TypeName[T]()
	install := func(i do.Injector) { do.ProvideNamed(i, name, provider) }
	if lt == Transient {
		install = func(i do.Injector) { do.ProvideNamedTransient(i, name, provider) }
	}
	forward := func(root do.Injector) func(do.Injector) {
		return func(i do.Injector) {
			do.ProvideNamedTransient(i, name, func(do.Injector) (T, error) {
				return do.InvokeNamed[T](root, name)
			})
		}
	}
	s.add(registration{
		install: install,
		forward: forward,
		desc: Descriptor{
			ServiceType:        name,
			Lifetime:           lt,
			ImplementationType: implName,
			resolve:            resolver[T](name),
		},
	})
}

func addTyped[T, I any](s *ServiceCollection, lt Lifetime, ctor func(do.Injector) (I, error)) {
	if err := checkAssignable[T, I](); err != nil {
		s.fail(err)
		return
	}
	register[T](s, lt, TypeName[I](), adapt[T](ctor))
}

// AddSingleton registers implementation I for T, built once on first use.
func AddSingleton[T, I any](s *ServiceCollection, ctor func(do.Injector) (I, error)) {
	addTyped[T](s, Singleton, ctor)
}

// AddScoped registers implementation I for T, built once per RequestScope.
func AddScoped[T, I any](s *ServiceCollection, ctor func(do.Injector) (I, error)) {
	addTyped[T](s, Scoped, ctor)
}

// AddTransient registers implementation I for T, built on every resolution.
func AddTransient[T, I any](s *ServiceCollection, ctor func(do.Injector) (I, error)) {
	addTyped[T](s, Transient, ctor)
}

// AddSingletonFactory registers a singleton factory; no implementation type
// is recorded.
func AddSingletonFactory[T any](s *ServiceCollection, factory func(do.Injector) (T, error)) {
	register[T](s, Singleton, "", do.Provider[T](factory))
}

// AddScopedFactory registers a per-scope factory.
func AddScopedFactory[T any](s *ServiceCollection, factory func(do.Injector) (T, error)) {
	register[T](s, Scoped, "", do.Provider[T](factory))
}

// AddTransientFactory registers a factory called on every resolution.
func AddTransientFactory[T any](s *ServiceCollection, factory func(do.Injector) (T, error)) {
	register[T](s, Transient, "", do.Provider[T](factory))
}

// AddValue registers an already built singleton.
func AddValue[T any](s *ServiceCollection, v T) {
	impl := nameOf(reflect.TypeOf(v))
	if impl == "" {
		impl = TypeName[T]()
	}
	register[T](s, Singleton, impl, func(do.Injector) (T, error) { return v, nil })
}

// Build seals the collection and creates the container. Singletons and
// transients are installed in the root scope; every RequestScope gets its
// own injector holding the scoped registrations plus forwarders to the root
// for everything else. When an abstraction is registered more than once, the
// last registration is the one resolved.
func (s *ServiceCollection) Build() (*Container, error) {
	s.mu.Lock()
	if s.sealed {
		s.mu.Unlock()
		return nil, ErrCollectionSealed
	}
	s.sealed = true
	regs := s.regs
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	descs := make([]Descriptor, len(regs))
	installs := make(map[string]registration, len(regs))
	for i, r := range regs {
		descs[i] = r.desc
		installs[r.desc.ServiceType] = r
	}
	registry := newRegistry(descs)

	var perScope []func(do.Injector)
	root := do.New()
	for _, d := range registry.effective() {
		r := installs[d.ServiceType]
		if d.Lifetime == Scoped {
			perScope = append(perScope, r.install)
			continue
		}
		r.install(root)
		perScope = append(perScope, r.forward(root))
	}

	return &Container{root: root, registry: registry, perScope: perScope}, nil
}
