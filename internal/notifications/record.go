package notifications

import (
	"time"

	"github.com/google/uuid"
)

// SystemAuthor is the fixed actor attributed to watcher-generated messages.
const SystemAuthor = "system"

// CategoryAppointments tags messages produced by the appointment watcher.
const CategoryAppointments = "appointments"

// EventNewMessage is the realtime event name observers subscribe to.
const EventNewMessage = "newMessage"

// Record is a persisted, system-authored message describing a detected
// appointment transition. Records are insert-only.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Category  string    `json:"category"`
	OrgID     string    `json:"org_id,omitempty"` // empty = global broadcast
	CreatedAt time.Time `json:"created_at"`
}
