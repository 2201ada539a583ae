package records

import "context"

// Store is the Record Store contract: durable persistence of the full
// user-record collection as a single unit. Load never fails on a missing
// backing store; it initializes and returns an empty collection instead.
// Save overwrites the whole collection. Both are atomic as observed by a
// single caller; serializing concurrent load-mutate-save cycles is the
// Service's job.
type Store interface {
	Load(ctx context.Context) ([]User, error)
	Save(ctx context.Context, users []User) error
}
