package meals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewMealID returns a client-generated item id: millisecond timestamp plus
// a random suffix. The random component keeps ids distinct even for items
// created within the same millisecond; the timestamp prefix keeps ids
// roughly sortable by creation time.
func NewMealID() string {
	return fmt.Sprintf("meal_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// NewSyncID returns an id for a queued offline mutation.
func NewSyncID() string {
	return fmt.Sprintf("sync_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// NewRecordID returns an id for a newly created daily record.
func NewRecordID() string {
	return uuid.NewString()
}
