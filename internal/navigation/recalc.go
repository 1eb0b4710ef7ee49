// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package navigation

// fetchKind tells apart the initial route fetch from a recalculation.
type fetchKind int

const (
	fetchInitial fetchKind = iota
	fetchRecalculation
)

// recalculator is a single-flight gate for route requests. It is owned by the session
// goroutine and needs no locking. Each started request gets a generation; a completion
// with any other generation is stale.
type recalculator struct {
	inFlight   bool
	kind       fetchKind
	generation uint64
	started    int
}

// Trigger starts a request unless one is outstanding. It returns the generation of the
// started request and false if the trigger was a no-op.
func (r *recalculator) Trigger(kind fetchKind) (uint64, bool) {
	if r.inFlight {
		return 0, false
	}
	r.inFlight = true
	r.kind = kind
	r.generation++
	r.started++
	return r.generation, true
}

// Complete reports whether generation is the outstanding request and clears it.
func (r *recalculator) Complete(generation uint64) bool {
	if !r.inFlight || generation != r.generation {
		return false
	}
	r.inFlight = false
	return true
}

// Cancel invalidates the outstanding request.
func (r *recalculator) Cancel() {
	r.inFlight = false
	r.generation++
}

func (r *recalculator) InFlight() bool {
	return r.inFlight
}
