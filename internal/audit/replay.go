package audit

import (
	"errors"
	"fmt"
	"time"
)

// Event is the replayable content of one ledger record.
type Event struct {
	Action        string
	ChangedFields []string
	Old           Snapshot
	New           Snapshot
	PerformedBy   uint
	PerformedAt   time.Time
}

// ErrNoInsert is returned when a history does not start with an INSERT.
var ErrNoInsert = errors.New("audit: history has no INSERT event")

// Soft-delete tracking columns. A DELETE event carries only the pre-delete state,
// so these are derived from the event itself during replay.
const (
	fieldIsDeleted = "is_deleted"
	fieldDeletedAt = "deleted_at"
	fieldDeletedBy = "deleted_by"
)

// Replay rebuilds a record's snapshot from its events, oldest first.
func Replay(events []Event) (Snapshot, error) {
	var state Snapshot
	for i, ev := range events {
		if state == nil && ev.Action != ActionInsert {
			return nil, fmt.Errorf("event %d (%s): %w", i, ev.Action, ErrNoInsert)
		}
		switch ev.Action {
		case ActionInsert, ActionRestore:
			state = ev.New.Clone()
		case ActionUpdate:
			for _, f := range ev.ChangedFields {
				if v, ok := ev.New[f]; ok {
					state[f] = v
				} else {
					delete(state, f)
				}
			}
		case ActionDelete:
			if _, ok := state[fieldIsDeleted]; ok {
				state[fieldIsDeleted] = true
			}
			if _, ok := state[fieldDeletedAt]; ok {
				state[fieldDeletedAt] = FormatTime(ev.PerformedAt)
			}
			if _, ok := state[fieldDeletedBy]; ok {
				state[fieldDeletedBy] = ev.PerformedBy
			}
		default:
			return nil, fmt.Errorf("audit: unknown action %q", ev.Action)
		}
	}
	if state == nil {
		return nil, ErrNoInsert
	}
	return state, nil
}
