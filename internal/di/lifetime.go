package di

// Lifetime controls how many instances of a service exist.
type Lifetime int

const (
	// Singleton: one instance for the process, owned by the root scope.
	Singleton Lifetime = iota
	// Scoped: one instance per RequestScope.
	Scoped
	// Transient: a new instance on every resolution.
	Transient
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "Singleton"
	case Scoped:
		return "Scoped"
	case Transient:
		return "Transient"
	default:
		return "Unknown"
	}
}
