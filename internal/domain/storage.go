package domain

import "context"

// Storage is the set of repositories a backend provides, plus a liveness check.
type Storage interface {
	Account() AccountRepository
	Transaction() TransactionRepository
	Ping(ctx context.Context) error
}
