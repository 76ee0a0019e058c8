package repositories

import (
	"context"
)

// UnitOfWork runs a function inside one store transaction. Event appends
// use it so sequence numbers are assigned atomically.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
