package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/rs/zerolog"
)

// Database is one logical store: in-memory when opened without a
// connection string, PostgreSQL otherwise.
type Database struct {
	sql  *sqlx.DB
	mem  *memory
	log  zerolog.Logger
	name string
}

// Open connects to conn, or creates an in-memory database when conn is
// empty. SQL databases are pinged and migrated before returning.
func Open(ctx context.Context, name, conn string, log zerolog.Logger) (*Database, error) {
	lg := log.With().Str("database", name).Logger()
	if strings.TrimSpace(conn) == "" {
		lg.Info().Msg("using in-memory database")
		return &Database{name: name, mem: newMemory(), log: lg}, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", conn)
	if err != nil {
		return nil, dbErr(name, "connect", err)
	}
	d := FromSQL(name, db, lg)
	if err := Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, dbErr(name, "migrate", err)
	}
	lg.Info().Msg("connected to postgres")
	return d, nil
}

// FromSQL wraps an existing connection without migrating it.
func FromSQL(name string, db *sqlx.DB, log zerolog.Logger) *Database {
	return &Database{name: name, sql: db, log: log}
}

func (d *Database) Name() string { return d.name }

func (d *Database) IsMemory() bool { return d.sql == nil }

// SQL returns the connection, nil for in-memory databases.
func (d *Database) SQL() *sqlx.DB { return d.sql }

func (d *Database) Ping(ctx context.Context) error {
	if d.sql == nil {
		return nil
	}
	return dbErr(d.name, "ping", d.sql.PingContext(ctx))
}

// Shutdown closes the connection; it satisfies the container's shutdowner.
func (d *Database) Shutdown() error {
	if d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// memory holds one document map per table.
type memory struct {
	tables map[string]*memTable
	mu     sync.Mutex
}

type memTable struct {
	rows   map[int][]byte
	nextID int
	mu     sync.RWMutex
}

func newMemory() *memory {
	return &memory{tables: make(map[string]*memTable)}
}

func (m *memory) table(name string) *memTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{rows: make(map[int][]byte), nextID: 1}
		m.tables[name] = t
	}
	return t
}

// Tables lists the logical tables a database holds, for diagnostics.
func (d *Database) Tables(ctx context.Context) ([]string, error) {
	if d.sql == nil {
		d.mem.mu.Lock()
		defer d.mem.mu.Unlock()
		names := make([]string, 0, len(d.mem.tables))
		for n := range d.mem.tables {
			names = append(names, n)
		}
		return names, nil
	}
	var names []string
	err := d.sql.SelectContext(ctx, &names,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`)
	if err != nil {
		return nil, dbErr(d.name, "list tables", err)
	}
	return names, nil
}

func (d *Database) String() string {
	kind := "postgres"
	if d.IsMemory() {
		kind = "memory"
	}
	return fmt.Sprintf("%s (%s)", d.name, kind)
}

// CatalogDB holds the catalog, basket and order tables.
type CatalogDB struct{ *Database }

// IdentityDB holds users.
type IdentityDB struct{ *Database }
