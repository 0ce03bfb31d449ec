// Package indexmap provides an arena-style collection mapping small stable
// integer ids to values.
//
// Ids are assigned from a free list and start at zero, so they double as
// indexes into parallel arrays (the compartment's base-address table relies
// on this). A live id is never reassigned; ids freed by Remove may be reused
// by later Add calls. Removal leaves no tombstones to skip over: lookups and
// iteration cost the same regardless of churn.
//
// A Map carries no locking of its own. The owner is expected to guard it
// with whatever lock already covers the surrounding state, the way a
// compartment guards its memory table.
package indexmap
