package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityProfile  = "profile"
	EntityFoodItem = "foodItem"

	OperationSet    = "set"
	OperationPatch  = "patch"
	OperationDelete = "delete"
)

// Item is a directory write that could not reach the primary store.
// Data holds the full document for set and the merged fields for patch.
type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Path      string          `json:"path"`
	Data      json.RawMessage `json:"data,omitempty"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = 3
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}

// supersedes reports whether i makes an older buffered write to the same path moot.
func (i *Item) supersedes(older *Item) bool {
	return i.Path != "" && i.Path == older.Path && i.Operation != OperationPatch
}
