package startup

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/storefront/internal/actuator"
	"github.com/omarluq/storefront/internal/applog"
	"github.com/omarluq/storefront/internal/basket"
	"github.com/omarluq/storefront/internal/cache"
	"github.com/omarluq/storefront/internal/catalog"
	"github.com/omarluq/storefront/internal/config"
	"github.com/omarluq/storefront/internal/controllers"
	"github.com/omarluq/storefront/internal/di"
	"github.com/omarluq/storefront/internal/discovery"
	"github.com/omarluq/storefront/internal/health"
	"github.com/omarluq/storefront/internal/httpclient"
	"github.com/omarluq/storefront/internal/identity"
	"github.com/omarluq/storefront/internal/metrics"
	"github.com/omarluq/storefront/internal/notify"
	"github.com/omarluq/storefront/internal/order"
	"github.com/omarluq/storefront/internal/ratelimit"
	"github.com/omarluq/storefront/internal/store"
	"github.com/omarluq/storefront/internal/web"
)

// Database names reported in logs, health details and error pages.
const (
	CatalogDatabaseName  = "Catalog"
	IdentityDatabaseName = "Identity"
)

const bootTimeout = 30 * time.Second

// ConfigureServices registers every service with services, builds the
// container and boots the stores. A missing or malformed CatalogBaseUrl
// and an unreachable store are fatal.
func (s *Startup) ConfigureServices(ctx context.Context, services *di.ServiceCollection) error {
	if err := s.require(Unconfigured); err != nil {
		return err
	}
	if err := s.cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrCatalogBaseURL) {
			return fmt.Errorf("startup: %w", err)
		}
		return fmt.Errorf("startup: invalid configuration: %w", err)
	}

	key, err := s.signingKey()
	if err != nil {
		return err
	}
	lazy := context.WithoutCancel(ctx)

	s.addIdentity(services, key)
	s.addDatabases(lazy, services)
	addRepositories(services)
	addBusinessServices(services)
	s.addOptions(services)
	addLoggers(services)
	s.addInfrastructure(lazy, services)
	s.addCatalogClient(services)

	container, err := services.Build()
	if err != nil {
		return fmt.Errorf("startup: build container: %w", err)
	}
	s.container = container

	bootCtx, cancel := context.WithTimeout(ctx, bootTimeout)
	defer cancel()
	if err := s.boot(bootCtx); err != nil {
		_ = container.Shutdown()
		s.container = nil
		return err
	}

	s.log.Info().Int("services", container.Registry().Len()).Msg("services configured")
	return s.advance(Unconfigured, ServicesConfigured)
}

// signingKey returns the configured ticket key. Development without a key
// gets a random one, so tickets do not survive a restart.
func (s *Startup) signingKey() ([]byte, error) {
	if k := s.cfg.Identity.SigningKey; k != "" {
		return []byte(k), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("startup: generate signing key: %w", err)
	}
	s.log.Warn().Msg("no identity.signing_key configured; using an ephemeral key")
	return key, nil
}

func (s *Startup) addIdentity(services *di.ServiceCollection, key []byte) {
	di.AddSingleton[*identity.CookieManager](services, func(do.Injector) (*identity.CookieManager, error) {
		opts := identity.DefaultCookieOptions()
		opts.Name = s.cfg.Identity.CookieName
		return identity.NewCookieManager(opts, key), nil
	})
	di.AddScoped[identity.UserStore](services, func(i do.Injector) (*identity.SQLUserStore, error) {
		users, err := di.Resolve[store.Repository[identity.User]](i)
		if err != nil {
			return nil, err
		}
		return identity.NewSQLUserStore(users), nil
	})
	di.AddScoped[*identity.UserManager](services, func(i do.Injector) (*identity.UserManager, error) {
		users, err := di.Resolve[identity.UserStore](i)
		if err != nil {
			return nil, err
		}
		log, err := di.Resolve[applog.Logger[identity.UserManager]](i)
		if err != nil {
			return nil, err
		}
		return identity.NewUserManager(users, 0, log.Zerolog()), nil
	})
	di.AddScoped[*identity.SignInManager](services, func(i do.Injector) (*identity.SignInManager, error) {
		users, err := di.Resolve[*identity.UserManager](i)
		if err != nil {
			return nil, err
		}
		cookies, err := di.Resolve[*identity.CookieManager](i)
		if err != nil {
			return nil, err
		}
		log, err := di.Resolve[applog.Logger[identity.SignInManager]](i)
		if err != nil {
			return nil, err
		}
		return identity.NewSignInManager(users, cookies, log.Zerolog()), nil
	})
	di.AddSingleton[identity.Authenticator](services, func(i do.Injector) (*identity.ChainAuthenticator, error) {
		cookies, err := di.Resolve[*identity.CookieManager](i)
		if err != nil {
			return nil, err
		}
		return identity.NewChainAuthenticator(
			identity.NewBearerAuthenticator(cookies.Tickets()),
			identity.NewCookieAuthenticator(cookies),
		), nil
	})
	di.AddSingleton[ratelimit.Limiter](services, func(do.Injector) (*ratelimit.KeyedLimiter, error) {
		return ratelimit.NewKeyedLimiter(s.cfg.Identity.SignInPerMinute), nil
	})
}

func (s *Startup) addDatabases(ctx context.Context, services *di.ServiceCollection) {
	di.AddSingleton[*store.CatalogDB](services, func(do.Injector) (*store.CatalogDB, error) {
		db, err := store.Open(ctx, CatalogDatabaseName, s.cfg.ConnectionStrings.CatalogConnection, s.log)
		if err != nil {
			return nil, err
		}
		return &store.CatalogDB{Database: db}, nil
	})
	di.AddSingleton[*store.IdentityDB](services, func(do.Injector) (*store.IdentityDB, error) {
		db, err := store.Open(ctx, IdentityDatabaseName, s.cfg.ConnectionStrings.IdentityConnection, s.log)
		if err != nil {
			return nil, err
		}
		return &store.IdentityDB{Database: db}, nil
	})
}

func addRepositories(services *di.ServiceCollection) {
	store.AddRepository[catalog.Item](services, catalog.ItemsTable, store.CatalogDatabase)
	store.AddRepository[catalog.Brand](services, catalog.BrandsTable, store.CatalogDatabase)
	store.AddRepository[catalog.Type](services, catalog.TypesTable, store.CatalogDatabase)
	store.AddRepository[basket.Basket](services, basket.Table, store.CatalogDatabase)
	store.AddRepository[order.Order](services, order.Table, store.CatalogDatabase)
	store.AddRepository[identity.User](services, identity.UsersTable, store.IdentityDatabase)
}

func addBusinessServices(services *di.ServiceCollection) {
	di.AddScoped[*catalog.RepositoryService](services, func(i do.Injector) (*catalog.RepositoryService, error) {
		items, err := di.Resolve[store.Repository[catalog.Item]](i)
		if err != nil {
			return nil, err
		}
		brands, err := di.Resolve[store.Repository[catalog.Brand]](i)
		if err != nil {
			return nil, err
		}
		types, err := di.Resolve[store.Repository[catalog.Type]](i)
		if err != nil {
			return nil, err
		}
		return catalog.NewRepositoryService(items, brands, types), nil
	})
	di.AddScoped[*catalog.CachedService](services, func(i do.Injector) (*catalog.CachedService, error) {
		inner, err := di.Resolve[catalog.Service](i)
		if err != nil {
			return nil, err
		}
		c, err := di.Resolve[cache.Cache](i)
		if err != nil {
			return nil, err
		}
		return catalog.NewCachedService(inner, c), nil
	})
	di.AddScoped[*basket.Service](services, func(i do.Injector) (*basket.Service, error) {
		repo, err := di.Resolve[store.Repository[basket.Basket]](i)
		if err != nil {
			return nil, err
		}
		log, err := di.Resolve[applog.Logger[basket.Service]](i)
		if err != nil {
			return nil, err
		}
		return basket.NewService(repo, log.Zerolog()), nil
	})
	di.AddScoped[*basket.ViewModelService](services, func(i do.Injector) (*basket.ViewModelService, error) {
		baskets, err := di.Resolve[*basket.Service](i)
		if err != nil {
			return nil, err
		}
		cat, err := di.Resolve[*catalog.CachedService](i)
		if err != nil {
			return nil, err
		}
		uri, err := di.Resolve[*catalog.URIComposer](i)
		if err != nil {
			return nil, err
		}
		return basket.NewViewModelService(baskets, cat, uri), nil
	})
	di.AddScoped[order.Repository](services, func(i do.Injector) (*order.StoreRepository, error) {
		orders, err := di.Resolve[store.Repository[order.Order]](i)
		if err != nil {
			return nil, err
		}
		return order.NewStoreRepository(orders), nil
	})
	di.AddScoped[*order.Service](services, func(i do.Injector) (*order.Service, error) {
		baskets, err := di.Resolve[store.Repository[basket.Basket]](i)
		if err != nil {
			return nil, err
		}
		orders, err := di.Resolve[store.Repository[order.Order]](i)
		if err != nil {
			return nil, err
		}
		cat, err := di.Resolve[*catalog.CachedService](i)
		if err != nil {
			return nil, err
		}
		log, err := di.Resolve[applog.Logger[order.Service]](i)
		if err != nil {
			return nil, err
		}
		return order.NewService(baskets, orders, cat, log.Zerolog()), nil
	})
	di.AddScoped[*order.OrderingService](services, func(i do.Injector) (*order.OrderingService, error) {
		orders, err := di.Resolve[order.Repository](i)
		if err != nil {
			return nil, err
		}
		creator, err := di.Resolve[*order.Service](i)
		if err != nil {
			return nil, err
		}
		email, err := di.Resolve[*notify.Outbox](i)
		if err != nil {
			return nil, err
		}
		uri, err := di.Resolve[*catalog.URIComposer](i)
		if err != nil {
			return nil, err
		}
		log, err := di.Resolve[applog.Logger[order.OrderingService]](i)
		if err != nil {
			return nil, err
		}
		return order.NewOrderingService(orders, creator, email, uri, log.Zerolog()), nil
	})
}

func (s *Startup) addOptions(services *di.ServiceCollection) {
	di.AddValue[*config.Config](services, s.cfg)
	di.AddValue[*config.Runtime](services, s.runtime)
	di.AddValue[zerolog.Logger](services, s.log)
	di.AddValue[catalog.Settings](services, catalog.Settings{CatalogBaseURL: s.cfg.CatalogBaseURL})
	di.AddTransientFactory[config.AppSettings](services, func(do.Injector) (config.AppSettings, error) {
		return s.runtime.AppSettings(), nil
	})
	di.AddSingleton[*catalog.URIComposer](services, func(i do.Injector) (*catalog.URIComposer, error) {
		settings, err := di.Resolve[catalog.Settings](i)
		if err != nil {
			return nil, err
		}
		return catalog.NewURIComposer(settings), nil
	})
}

// addLogger registers the scoped logging adapter for T.
func addLogger[T any](services *di.ServiceCollection) {
	di.AddScopedFactory[applog.Logger[T]](services, func(i do.Injector) (applog.Logger[T], error) {
		base, err := di.Resolve[zerolog.Logger](i)
		if err != nil {
			return applog.Logger[T]{}, err
		}
		return applog.For[T](base), nil
	})
}

func addLoggers(services *di.ServiceCollection) {
	addLogger[identity.UserManager](services)
	addLogger[identity.SignInManager](services)
	addLogger[basket.Service](services)
	addLogger[order.Service](services)
	addLogger[order.OrderingService](services)
	addLogger[controllers.AccountController](services)
	addLogger[controllers.BasketController](services)
}

func (s *Startup) addInfrastructure(ctx context.Context, services *di.ServiceCollection) {
	di.AddTransient[notify.EmailSender](services, func(do.Injector) (*notify.LogEmailSender, error) {
		return notify.NewLogEmailSender(s.cfg.Email.From, applog.For[notify.LogEmailSender](s.log).Zerolog()), nil
	})
	di.AddSingleton[*notify.Outbox](services, func(i do.Injector) (*notify.Outbox, error) {
		next, err := di.Resolve[notify.EmailSender](i)
		if err != nil {
			return nil, err
		}
		return notify.NewOutbox(next, s.cfg.Email.PerRecipientPerMinute, applog.For[notify.Outbox](s.log).Zerolog()), nil
	})
	di.AddSingletonFactory[cache.Cache](services, func(do.Injector) (cache.Cache, error) {
		cache.SetLogger(&s.log)
		return cache.New(ctx, &s.cfg.Cache)
	})
	di.AddSingleton[*web.ContextAccessor](services, func(do.Injector) (*web.ContextAccessor, error) {
		return web.NewContextAccessor(), nil
	})

	di.AddTransient[*httpclient.AuthorizationHandler](services, func(do.Injector) (*httpclient.AuthorizationHandler, error) {
		return httpclient.NewAuthorizationHandler(ctx, s.cfg.HTTPClient.Auth)
	})
	di.AddTransient[*httpclient.RequestIDHandler](services, func(do.Injector) (*httpclient.RequestIDHandler, error) {
		return httpclient.NewRequestIDHandler(), nil
	})

	di.AddSingletonFactory[discovery.Client](services, func(do.Injector) (discovery.Client, error) {
		return discovery.New(&s.cfg.Discovery, &s.log)
	})
	di.AddSingletonFactory[discovery.Balancer](services, func(do.Injector) (discovery.Balancer, error) {
		return discovery.NewBalancer(s.cfg.Discovery.Strategy)
	})
	di.AddSingleton[*health.Tracker](services, func(do.Injector) (*health.Tracker, error) {
		return health.NewTracker(s.cfg.Health.Breaker, &s.log), nil
	})
	di.AddSingleton[*health.Checker](services, func(i do.Injector) (*health.Checker, error) {
		tracker, err := di.Resolve[*health.Tracker](i)
		if err != nil {
			return nil, err
		}
		return health.NewChecker(tracker, s.cfg.Health.Probe, &s.log), nil
	})

	di.AddSingleton[*httpclient.Factory](services, func(i do.Injector) (*httpclient.Factory, error) {
		requestID, err := di.Resolve[*httpclient.RequestIDHandler](i)
		if err != nil {
			return nil, err
		}
		auth, err := di.Resolve[*httpclient.AuthorizationHandler](i)
		if err != nil {
			return nil, err
		}
		client, err := di.Resolve[discovery.Client](i)
		if err != nil {
			return nil, err
		}
		balancer, err := di.Resolve[discovery.Balancer](i)
		if err != nil {
			return nil, err
		}
		tracker, err := di.Resolve[*health.Tracker](i)
		if err != nil {
			return nil, err
		}
		discover := httpclient.HandlerFunc(func(next http.RoundTripper) http.RoundTripper {
			return discovery.NewTransport(client, balancer, tracker, next).WithLogger(s.log)
		})

		f := httpclient.NewFactory(s.log)
		err = f.AddClient(httpclient.ExtendedHandlerLifetime, httpclient.Profile{
			Handlers:        []httpclient.Handler{requestID, discover, auth},
			HandlerLifetime: s.cfg.HTTPClient.HandlerLifetime(),
			Timeout:         s.cfg.HTTPClient.Timeout(),
			EnableHTTP2:     s.cfg.Server.EnableHTTP2,
		})
		if err != nil {
			return nil, err
		}
		return f, nil
	})

	di.AddSingleton[*metrics.Metrics](services, func(i do.Injector) (*metrics.Metrics, error) {
		c, err := di.Resolve[cache.Cache](i)
		if err != nil {
			return nil, err
		}
		tracker, err := di.Resolve[*health.Tracker](i)
		if err != nil {
			return nil, err
		}
		m := metrics.New()
		m.WatchCache(c)
		m.WatchCircuits(tracker)
		return m, nil
	})
	di.AddSingleton[*actuator.Actuator](services, func(i do.Injector) (*actuator.Actuator, error) {
		m, err := di.Resolve[*metrics.Metrics](i)
		if err != nil {
			return nil, err
		}
		c, err := di.Resolve[cache.Cache](i)
		if err != nil {
			return nil, err
		}
		catalogDB, err := di.Resolve[*store.CatalogDB](i)
		if err != nil {
			return nil, err
		}
		identityDB, err := di.Resolve[*store.IdentityDB](i)
		if err != nil {
			return nil, err
		}
		client, err := di.Resolve[discovery.Client](i)
		if err != nil {
			return nil, err
		}
		tracker, err := di.Resolve[*health.Tracker](i)
		if err != nil {
			return nil, err
		}
		return actuator.New(actuator.Options{
			Metrics:  m.Handler(),
			BasePath: s.cfg.Actuators.BasePath,
			Exposure: s.cfg.Actuators.Exposure,
			Contributors: []actuator.Contributor{
				actuator.DiskSpace(".", actuator.DefaultDiskThreshold),
				actuator.Cache(c),
				actuator.Databases(catalogDB.Database, identityDB.Database),
				actuator.Discovery(client, tracker),
			},
			Info: []actuator.InfoContributor{
				actuator.StaticInfo("app.name", s.cfg.AppSettings.SiteName),
				actuator.StaticInfo("app.environment", s.cfg.Environment),
			},
		}), nil
	})
}

// addCatalogClient binds catalog.Service exactly once, to the remote client
// behind the discovery-aware transport.
func (s *Startup) addCatalogClient(services *di.ServiceCollection) {
	di.AddSingletonFactory[catalog.Service](services, func(i do.Injector) (catalog.Service, error) {
		factory, err := di.Resolve[*httpclient.Factory](i)
		if err != nil {
			return nil, err
		}
		client, err := factory.Client(httpclient.ExtendedHandlerLifetime)
		if err != nil {
			return nil, err
		}
		settings, err := di.Resolve[catalog.Settings](i)
		if err != nil {
			return nil, err
		}
		log := applog.For[catalog.RemoteService](s.log).Zerolog()
		return catalog.NewRemoteService(client, settings.CatalogBaseURL, log)
	})
}

// boot resolves every registration once, then seeds the stores inside a
// dedicated scope.
func (s *Startup) boot(ctx context.Context) error {
	if err := s.container.Verify(); err != nil {
		return fmt.Errorf("startup: resolve services: %w", err)
	}

	for _, ping := range []func(do.Injector) (*store.Database, error){store.CatalogDatabase, store.IdentityDatabase} {
		db, err := ping(s.container.Root())
		if err != nil {
			return fmt.Errorf("startup: open database: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			return fmt.Errorf("startup: database %s unreachable: %w", db.Name(), err)
		}
	}

	scope := s.container.NewScope()
	defer func() { _ = scope.Close() }()
	i := scope.Injector()

	items := di.MustResolve[store.Repository[catalog.Item]](i)
	brands := di.MustResolve[store.Repository[catalog.Brand]](i)
	types := di.MustResolve[store.Repository[catalog.Type]](i)
	if err := catalog.Seed(ctx, items, brands, types, s.log); err != nil {
		return fmt.Errorf("startup: seed catalog: %w", err)
	}

	if s.cfg.Identity.SeedDemoUser {
		users := di.MustResolve[*identity.UserManager](i)
		if err := identity.SeedDemoUser(ctx, users, s.cfg.Identity.DemoUserPassword); err != nil {
			return fmt.Errorf("startup: seed demo user: %w", err)
		}
	}
	return nil
}
