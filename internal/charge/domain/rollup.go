package domain

// StatusFor derives a charge's lifecycle status from its amount and the sum
// of allocations against it. VOID is terminal and never derived here; callers
// must not roll up a voided charge.
//
// Status may regress from PARTIALLY_PAID to UNPAID when a payment is
// reversed. PAID requires the full amount; a zero-amount charge is PAID the
// moment it exists.
func StatusFor(amountCents, allocatedCents int64) Status {
	switch {
	case allocatedCents <= 0 && amountCents > 0:
		return StatusUnpaid
	case allocatedCents < amountCents:
		return StatusPartiallyPaid
	default:
		return StatusPaid
	}
}

// CanTransition reports whether a charge may move between two statuses.
// Allocation-driven moves flow both ways between the unpaid and paid states;
// VOID is reachable only from UNPAID and is terminal.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusUnpaid:
		return to == StatusPartiallyPaid || to == StatusPaid || to == StatusVoid
	case StatusPartiallyPaid:
		return to == StatusPaid || to == StatusUnpaid
	case StatusPaid:
		return to == StatusPartiallyPaid || to == StatusUnpaid
	case StatusVoid:
		return false
	}
	return false
}

// Remaining is the unallocated portion of a charge. Never negative for a
// charge honoring the no-over-allocation invariant.
func Remaining(amountCents, allocatedCents int64) int64 {
	if allocatedCents >= amountCents {
		return 0
	}
	return amountCents - allocatedCents
}
