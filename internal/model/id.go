package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// NewID returns a ULID for the current instant.
func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt returns a ULID stamped with t, so that the ids of records created
// together sort with their CreatedAt. Ids drawn within the same millisecond
// are strictly increasing.
func NewIDAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
