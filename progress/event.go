package progress

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies an Event.
type Kind string

const (
	KindProgress Kind = "progress"
	KindStatus   Kind = "status"
	KindWarning  Kind = "warning"
	KindDone     Kind = "done"
	KindFailed   Kind = "failed"
)

// Event is one notification from a stage run.
type Event struct {
	RunID   uuid.UUID
	Stage   string
	Kind    Kind
	Percent int
	Message string
	Err     error
	Time    time.Time
}

// Terminal reports whether e ends its run.
func (e Event) Terminal() bool { return e.Kind == KindDone || e.Kind == KindFailed }
