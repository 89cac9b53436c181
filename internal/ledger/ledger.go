// Package ledger is the durable set of reservation keys already applied to
// the target. It is read fully at startup and consulted before every apply;
// once a key is recorded it is skipped forever.
package ledger

// Ledger is the idempotency contract. Add is idempotent: re-adding an
// existing key is a no-op.
type Ledger interface {
	Has(key string) bool
	Add(key string) error
	Len() int
}
