package outbound

import "context"

// Transactor runs fn inside a single unit of work. Repositories called with the
// ctx passed to fn take part in it; nested calls join the outer unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
