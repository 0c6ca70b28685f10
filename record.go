package twincache

import "time"

// Source identifies where a returned payload came from.
type Source string

const (
	// SourceMemory means the payload was served out of the in-process
	// Memory Layer.
	SourceMemory Source = "MEMORY"
	// SourceDisk means the payload was promoted from Persistence.
	SourceDisk Source = "DISK"
	// SourceCloud means the payload came fresh from a Loader invocation.
	SourceCloud Source = "CLOUD"
)

// Record is a stored payload plus the metadata needed to evaluate TTL,
// migrate across schema versions, and weigh against the disk budget.
type Record struct {
	Payload   any
	TypeTag   string
	Source    Source
	CreatedAt time.Time
	Lifetime  time.Duration
	Expirable bool
}

// Expired reports whether the record has outlived its configured
// lifetime as of now. A zero Lifetime means "never expires".
func (r *Record) Expired(now time.Time) bool {
	if r.Lifetime <= 0 {
		return false
	}
	return now.Sub(r.CreatedAt) > r.Lifetime
}

// Reply is a payload plus its source origin, returned to callers who opt
// into the detailed response shape.
type Reply struct {
	Payload any
	Source  Source
}
