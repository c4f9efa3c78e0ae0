// Package page implements the page controllers of the ticketing client.
//
// Each controller is a small state machine (idle, loading, ready, error) around one or more backend
// operations. Controllers never render anything themselves; front ends call their operations, read the
// immutable snapshot returned by View and follow the Route it signals.
//
// Backend failures are recovered into the snapshot as user-facing messages. Operations only return an
// error if they did not run (ErrBusy), if their result was discarded (ErrStale) or if the token store
// failed.
package page
