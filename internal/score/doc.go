// Package score incrementally evaluates multi-vehicle pickup-and-delivery
// schedules with time windows.
//
// A Schedule threads one chain per vehicle through an arena of parcel visits.
// A Session caches, per visit, the completion time, the travel time incurred
// from its predecessor and the tardiness incurred at the visit, and keeps the
// running hard and soft totals consistent with the chains.
//
// The host search loop mutates one successor link at a time, bracketed by
// BeforeLinkChange and AfterLinkChange:
//
//	edit, err := sess.BeforeLinkChange(v)
//	...
//	err = sched.SetSuccessor(v, s)
//	...
//	err = edit.AfterLinkChange()
//
// Score reprices the suffix of every touched vehicle once, however many edits
// were made since the previous call. Reset is the only full pass.
//
// A Session is not safe for concurrent use. Independent sessions share no
// state.
package score
