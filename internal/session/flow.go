package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/m3rciful/reviewbot/core/telegram/state"
)

const (
	eventStart  = "start"
	eventSelect = "select"
	eventSubmit = "submit"
	eventCancel = "cancel"
)

// ErrInvalidTransition reports an event that is not allowed from the current phase.
var ErrInvalidTransition = errors.New("invalid session transition")

var allPhases = []string{
	string(PhaseIdle),
	string(PhaseAwaitingEstablishment),
	string(PhaseAwaitingFeedback),
}

// flowEvents is the conversation transition table.
var flowEvents = fsm.Events{
	{Name: eventStart, Src: allPhases, Dst: string(PhaseAwaitingEstablishment)},
	{Name: eventSelect, Src: []string{string(PhaseIdle), string(PhaseAwaitingEstablishment)}, Dst: string(PhaseAwaitingFeedback)},
	{Name: eventSubmit, Src: []string{string(PhaseAwaitingFeedback)}, Dst: string(PhaseIdle)},
	{Name: eventCancel, Src: allPhases, Dst: string(PhaseIdle)},
}

// transition runs event against a machine positioned at from and returns
// the resulting phase. Re-entering the same phase is not an error.
func transition(ctx context.Context, from state.State, event string) (state.State, error) {
	machine := fsm.NewFSM(string(from), flowEvents, nil)
	err := machine.Event(ctx, event)
	if err != nil {
		var noop fsm.NoTransitionError
		if !errors.As(err, &noop) {
			return from, fmt.Errorf("%w: %s from %s: %v", ErrInvalidTransition, event, from, err)
		}
	}
	return state.State(machine.Current()), nil
}

// Allowed lists the events accepted in phase p, for diagnostics.
func Allowed(p state.State) []string {
	return fsm.NewFSM(string(p), flowEvents, nil).AvailableTransitions()
}
