package domain

import "context"

// LedgerStore persists the append-only ledger. Implementations keep the
// statistics equal to the fold of the collections on every append.
type LedgerStore interface {
	Append(ctx context.Context, rec Record) error
	ReadAll(ctx context.Context) (*LedgerDocument, error)
}

// Pinger is implemented by stores that can report liveness without
// reading their contents.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserStore persists accounts keyed by username.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, username string) (*User, error)
}

// FeedbackStore persists feedback submissions.
type FeedbackStore interface {
	Create(ctx context.Context, fb *Feedback) error
	List(ctx context.Context) ([]Feedback, error)
}
