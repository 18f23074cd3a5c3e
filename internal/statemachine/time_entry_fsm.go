package statemachine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/sjperalta/parktime-api/internal/models"
)

// ErrInvalidTransition is wrapped by every rejected lifecycle event
var ErrInvalidTransition = errors.New("invalid time entry transition")

// Time entry events
const (
	EventUpdate  = "update"
	EventDelete  = "delete"
	EventRestore = "restore"
)

// TimeEntryFSM wraps a time entry with its lifecycle: active ⇄ deleted, with
// restore the only way back out of deleted.
type TimeEntryFSM struct {
	entry *models.TimeEntry
	fsm   *fsm.FSM
}

// NewTimeEntryFSM creates a state machine positioned at the entry's current state
func NewTimeEntryFSM(entry *models.TimeEntry) *TimeEntryFSM {
	tf := &TimeEntryFSM{
		entry: entry,
	}

	tf.fsm = fsm.NewFSM(
		entry.State(),
		fsm.Events{
			// active → active
			{Name: EventUpdate, Src: []string{models.EntryStateActive}, Dst: models.EntryStateActive},

			// active → deleted
			{Name: EventDelete, Src: []string{models.EntryStateActive}, Dst: models.EntryStateDeleted},

			// deleted → active
			{Name: EventRestore, Src: []string{models.EntryStateDeleted}, Dst: models.EntryStateActive},
		},
		fsm.Callbacks{},
	)

	return tf
}

// Current returns the current state
func (t *TimeEntryFSM) Current() string {
	return t.fsm.Current()
}

// CanUpdate reports whether field edits are allowed
func (t *TimeEntryFSM) CanUpdate() bool {
	return t.fsm.Can(EventUpdate)
}

// Delete soft-deletes the entry
func (t *TimeEntryFSM) Delete(ctx context.Context, by uint, at time.Time) error {
	if err := t.fsm.Event(ctx, EventDelete); err != nil {
		return fmt.Errorf("%w: cannot delete entry in state %s: %v", ErrInvalidTransition, t.fsm.Current(), err)
	}
	t.entry.SoftDelete(by, at)
	return nil
}

// Restore brings a deleted entry back
func (t *TimeEntryFSM) Restore(ctx context.Context) error {
	if err := t.fsm.Event(ctx, EventRestore); err != nil {
		return fmt.Errorf("%w: cannot restore entry in state %s: %v", ErrInvalidTransition, t.fsm.Current(), err)
	}
	t.entry.Restore()
	return nil
}
