package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// Repository is the synchronous data access abstraction.
type Repository[E Entity[E]] interface {
	GetByID(ctx context.Context, id int) (E, error)
	ListAll(ctx context.Context) ([]E, error)
	List(ctx context.Context, spec Specification[E]) ([]E, error)
	Count(ctx context.Context, spec Specification[E]) (int, error)
	First(ctx context.Context, spec Specification[E]) (E, error)
	Add(ctx context.Context, e E) (E, error)
	Update(ctx context.Context, e E) error
	Delete(ctx context.Context, e E) error
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// EntityRepository stores E in one table of a Database.
type EntityRepository[E Entity[E]] struct {
	db    *Database
	log   zerolog.Logger
	table string
}

var _ Repository[probe] = (*EntityRepository[probe])(nil)

// NewRepository binds E to table. It panics on a table name that is not a
// plain lowercase identifier, since names are fixed at compile time.
func NewRepository[E Entity[E]](db *Database, table string) *EntityRepository[E] {
	if !tableName.MatchString(table) {
		panic(fmt.Sprintf("store: invalid table name %q", table))
	}
	return &EntityRepository[E]{
		db:    db,
		table: table,
		log:   db.log.With().Str("table", table).Logger(),
	}
}

func (r *EntityRepository[E]) Table() string { return r.table }

func (r *EntityRepository[E]) GetByID(ctx context.Context, id int) (E, error) {
	if err := ctx.Err(); err != nil {
		var zero E
		return zero, err
	}
	if r.db.IsMemory() {
		return r.memGet(id)
	}

	var rw row
	q := fmt.Sprintf(`SELECT id, data FROM %s WHERE id = $1`, r.table)
	if err := r.db.sql.GetContext(ctx, &rw, q, id); err != nil {
		var zero E
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, dbErr(r.db.name, "get "+r.table, err)
	}
	e, err := decode[E](rw.ID, rw.Data)
	return e, dbErr(r.db.name, "decode "+r.table, err)
}

func (r *EntityRepository[E]) ListAll(ctx context.Context) ([]E, error) {
	return r.List(ctx, All[E]())
}

func (r *EntityRepository[E]) List(ctx context.Context, spec Specification[E]) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.db.IsMemory() {
		return r.memList(spec)
	}

	q, args := r.selectSQL(`id, data`, spec, true)
	var rows []row
	if err := r.db.sql.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, dbErr(r.db.name, "list "+r.table, err)
	}
	out := make([]E, 0, len(rows))
	for _, rw := range rows {
		e, err := decode[E](rw.ID, rw.Data)
		if err != nil {
			return nil, dbErr(r.db.name, "decode "+r.table, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *EntityRepository[E]) Count(ctx context.Context, spec Specification[E]) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	spec = spec.Unpaged()
	if r.db.IsMemory() {
		items, err := r.memList(spec)
		return len(items), err
	}

	q, args := r.selectSQL(`COUNT(*)`, spec, false)
	var n int
	if err := r.db.sql.GetContext(ctx, &n, q, args...); err != nil {
		return 0, dbErr(r.db.name, "count "+r.table, err)
	}
	return n, nil
}

func (r *EntityRepository[E]) First(ctx context.Context, spec Specification[E]) (E, error) {
	spec.Take = 1
	items, err := r.List(ctx, spec)
	if err != nil {
		var zero E
		return zero, err
	}
	if len(items) == 0 {
		var zero E
		return zero, ErrNotFound
	}
	return items[0], nil
}

// Add inserts e and returns it with the assigned id.
func (r *EntityRepository[E]) Add(ctx context.Context, e E) (E, error) {
	if err := ctx.Err(); err != nil {
		return e, err
	}
	doc, err := encode(e)
	if err != nil {
		return e, dbErr(r.db.name, "encode "+r.table, err)
	}
	if r.db.IsMemory() {
		t := r.db.mem.table(r.table)
		t.mu.Lock()
		id := t.nextID
		t.nextID++
		t.rows[id] = doc
		t.mu.Unlock()
		r.log.Debug().Int("id", id).Msg("entity added")
		return e.WithID(id), nil
	}

	var id int
	q := fmt.Sprintf(`INSERT INTO %s (data) VALUES ($1) RETURNING id`, r.table)
	if err := r.db.sql.QueryRowxContext(ctx, q, doc).Scan(&id); err != nil {
		return e, dbErr(r.db.name, "insert "+r.table, err)
	}
	r.log.Debug().Int("id", id).Msg("entity added")
	return e.WithID(id), nil
}

func (r *EntityRepository[E]) Update(ctx context.Context, e E) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := encode(e)
	if err != nil {
		return dbErr(r.db.name, "encode "+r.table, err)
	}
	if r.db.IsMemory() {
		t := r.db.mem.table(r.table)
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.rows[e.GetID()]; !ok {
			return ErrNotFound
		}
		t.rows[e.GetID()] = doc
		return nil
	}

	q := fmt.Sprintf(`UPDATE %s SET data = $1 WHERE id = $2`, r.table)
	res, err := r.db.sql.ExecContext(ctx, q, doc, e.GetID())
	return r.affected("update", res, err)
}

func (r *EntityRepository[E]) Delete(ctx context.Context, e E) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db.IsMemory() {
		t := r.db.mem.table(r.table)
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.rows[e.GetID()]; !ok {
			return ErrNotFound
		}
		delete(t.rows, e.GetID())
		return nil
	}

	q := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)
	res, err := r.db.sql.ExecContext(ctx, q, e.GetID())
	return r.affected("delete", res, err)
}

func (r *EntityRepository[E]) affected(op string, res sql.Result, err error) error {
	if err != nil {
		return dbErr(r.db.name, op+" "+r.table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbErr(r.db.name, op+" "+r.table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EntityRepository[E]) selectSQL(cols string, spec Specification[E], ordered bool) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, `SELECT %s FROM %s`, cols, r.table)
	args := slices.Clone(spec.Args)
	if spec.Where != "" {
		b.WriteString(` WHERE `)
		b.WriteString(spec.Where)
	}
	if !ordered {
		return b.String(), args
	}
	order := spec.OrderBy
	if order == "" {
		order = "id"
	}
	b.WriteString(` ORDER BY `)
	b.WriteString(order)
	if spec.Take > 0 {
		args = append(args, spec.Take)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	if spec.Skip > 0 {
		args = append(args, spec.Skip)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}
	return b.String(), args
}

func (r *EntityRepository[E]) memGet(id int) (E, error) {
	t := r.db.mem.table(r.table)
	t.mu.RLock()
	raw, ok := t.rows[id]
	t.mu.RUnlock()
	if !ok {
		var zero E
		return zero, ErrNotFound
	}
	e, err := decode[E](id, raw)
	return e, dbErr(r.db.name, "decode "+r.table, err)
}

func (r *EntityRepository[E]) memList(spec Specification[E]) ([]E, error) {
	t := r.db.mem.table(r.table)
	t.mu.RLock()
	ids := make([]int, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]E, 0, len(ids))
	for _, id := range ids {
		e, err := decode[E](id, t.rows[id])
		if err != nil {
			t.mu.RUnlock()
			return nil, dbErr(r.db.name, "decode "+r.table, err)
		}
		if spec.matches(e) {
			out = append(out, e)
		}
	}
	t.mu.RUnlock()

	if spec.Less != nil {
		slices.SortStableFunc(out, spec.Less)
	}
	if spec.Skip > 0 {
		if spec.Skip >= len(out) {
			return []E{}, nil
		}
		out = out[spec.Skip:]
	}
	if spec.Take > 0 && spec.Take < len(out) {
		out = out[:spec.Take]
	}
	return out, nil
}

// probe only anchors the interface assertion above.
type probe struct{ ID int }

func (p probe) GetID() int          { return p.ID }
func (p probe) WithID(id int) probe { p.ID = id; return p }
