package score

import "errors"

// Sentinel errors. Signalling-contract violations are programming errors of
// the host search loop; once one is reported the session refuses further work
// until the next Reset.
var (
	// ErrEditPending indicates a call that requires no open link edit.
	ErrEditPending = errors.New("score: link edit pending")
	// ErrNoEditPending indicates AfterLinkChange without a matching BeforeLinkChange.
	ErrNoEditPending = errors.New("score: no link edit pending")
	// ErrStaleEdit indicates a LinkEdit token that is not the open edit.
	ErrStaleEdit = errors.New("score: stale link edit")
	// ErrUnbracketedMutation indicates the graph changed outside a bracketed edit.
	ErrUnbracketedMutation = errors.New("score: unbracketed schedule mutation")
	// ErrInvariant indicates corrupted evaluator bookkeeping.
	ErrInvariant = errors.New("score: invariant violated")
	// ErrBroken is returned by every call on a poisoned session.
	ErrBroken = errors.New("score: session broken")
	// ErrNotReset indicates a call before Reset.
	ErrNotReset = errors.New("score: session not reset")

	ErrUnknownVisit     = errors.New("score: unknown visit")
	ErrVehicleSuccessor = errors.New("score: vehicle cannot be a successor")
	ErrAttached         = errors.New("score: successor already has a predecessor")
	ErrCycle            = errors.New("score: link would close a cycle")
)
