package di_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/samber/do/v2"

	"github.com/omarluq/storefront/internal/di"
)

func TestRegistry_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("n registrations produce n descriptors in order", prop.ForAll(
		func(lifetimes []int) bool {
			s := di.NewServiceCollection()
			for _, lt := range lifetimes {
				switch di.Lifetime(lt) {
				case di.Singleton:
					di.AddSingleton[Greeter](s, newEnglish)
				case di.Scoped:
					di.AddScoped[Greeter](s, newEnglish)
				default:
					di.AddTransientFactory[Greeter](s, func(do.Injector) (Greeter, error) { return frenchGreeter{}, nil })
				}
			}
			c, err := s.Build()
			if err != nil {
				return false
			}
			defer c.Shutdown()

			ds := c.Registry().Descriptors()
			if len(ds) != len(lifetimes) {
				return false
			}
			for i, d := range ds {
				if d.Lifetime != di.Lifetime(lifetimes[i]) {
					return false
				}
			}
			if len(ds) == 0 {
				return true
			}
			last, ok := c.Registry().Lookup(di.TypeName[Greeter]())
			return ok && last.Lifetime == ds[len(ds)-1].Lifetime
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}
