// Package rowversion holds the optimistic-concurrency primitives shared by every
// versioned repository.
//
// A versioned row starts at Initial and is bumped by exactly one on every successful
// conditional write. A conditional write that matches zero rows is reported as
// errors.ErrVersionConflict, whether the row is stale, missing, soft-deleted or owned by
// another tenant.
package rowversion

import "time"

// Initial is the version assigned on insert.
const Initial int64 = 1

// Stamp is what a successful write hands back so the caller's copy stays current.
type Stamp struct {
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Created is what a successful insert hands back.
type Created struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Next returns the stamp a row at version expected moves to when written at now.
func Next(expected int64, now time.Time) Stamp {
	return Stamp{Version: expected + 1, UpdatedAt: now}
}

// Matches reports whether a stored version satisfies the caller's expectation.
// In-memory repositories use it to emulate the conditional WHERE clause.
func Matches(stored, expected int64) bool {
	return stored == expected
}
