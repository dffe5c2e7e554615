package sqlite

// Op holds the options for Open/BuildConnectionString.
type Op struct {
	readOnly bool
	cache    string
}

type OpOption func(*Op)

// WithReadOnly opens the database in read-only mode (mode=ro).
func WithReadOnly(b bool) OpOption {
	return func(op *Op) {
		op.readOnly = b
	}
}

// WithCache sets the sqlite cache mode (e.g. "shared"), meaningful only
// for in-memory (":memory:") databases.
func WithCache(cache string) OpOption {
	return func(op *Op) {
		op.cache = cache
	}
}

func (op *Op) applyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}
	return nil
}
