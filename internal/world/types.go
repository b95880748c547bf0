package world

import "sync"

// OpResult is the three-valued outcome of world operations. Callers
// comparing several engines keep going when one lane fails, so these
// travel as return values rather than panics.
type OpResult int

const (
	// Failed means the operation could not complete for
	// implementation reasons.
	Failed OpResult = iota
	// NotSupported means the combination of inputs and capabilities
	// is outside what this world can represent; callers may retry
	// with a different representation.
	NotSupported
	// Success means the operation completed.
	Success
)

func (r OpResult) String() string {
	switch r {
	case Failed:
		return "failed"
	case NotSupported:
		return "not-supported"
	case Success:
		return "success"
	}
	return "unknown"
}

// RefResult reports how SetWorld bound a native world to an adaptor.
type RefResult int

const (
	// RefError means the world could not be taken over at all.
	RefError RefResult = iota
	// Copied means the state was copied; the two worlds are
	// independent afterwards.
	Copied
	// Referenced means the adaptor holds a live reference; later
	// changes to the native world are visible through the adaptor.
	Referenced
)

func (r RefResult) String() string {
	switch r {
	case RefError:
		return "error"
	case Copied:
		return "copied"
	case Referenced:
		return "referenced"
	}
	return "unknown"
}

// ModelID identifies a model within one world instance. It is opaque
// and engine-scoped; across engines only value equality of the name
// is meaningful, because scenario construction assigns the same name
// in every world.
type ModelID string

// ModelLoadResult is returned by the AddModel operations.
type ModelLoadResult struct {
	Result  OpResult
	ModelID ModelID
}

// Diag counts per-instance diagnostic events (consistency violations,
// repeated warnings). Each world owns one, so a noisy engine cannot
// suppress warnings for another, and counters travel with the world
// into reports.
type Diag struct {
	mu     sync.Mutex
	counts map[string]int
}

// Count records one occurrence of the named event and returns the new
// total. A caller that only wants to log the first occurrence checks
// for a return of 1.
func (d *Diag) Count(event string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.counts == nil {
		d.counts = make(map[string]int)
	}
	d.counts[event]++
	return d.counts[event]
}

// Snapshot returns a copy of all counters.
func (d *Diag) Snapshot() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
