package store

// Specification selects entities. Match filters in memory; Where is the
// equivalent SQL predicate over the JSON column `data` with $n placeholders
// bound to Args. Both must describe the same set.
type Specification[E any] struct {
	Match   func(E) bool
	Less    func(a, b E) int
	Where   string
	OrderBy string
	Args    []any
	Skip    int
	Take    int
}

// All matches every entity, ordered by id.
func All[E any]() Specification[E] {
	return Specification[E]{}
}

// Page returns a copy of s limited to one page.
func (s Specification[E]) Page(index, size int) Specification[E] {
	s.Skip = index * size
	s.Take = size
	return s
}

// Unpaged drops Skip and Take, for counting.
func (s Specification[E]) Unpaged() Specification[E] {
	s.Skip, s.Take = 0, 0
	return s
}

func (s Specification[E]) matches(e E) bool {
	return s.Match == nil || s.Match(e)
}
