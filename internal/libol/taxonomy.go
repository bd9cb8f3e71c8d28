package libol

import "errors"

// Error taxonomyEach is a sentinel checked with errors.Is;
// call sites that need detail wrap one of these with fmt.Errorf("...: %w", ErrX).
var (
	// ErrHandlerAbsent: no subscription to the external handler; surfaced
	// to adapter callers, logged as warning, no state mutation.
	ErrHandlerAbsent = errors.New("external handler absent")

	// ErrTransport: RPC dispatch failed; logged critical, shadow stays in
	// its pending state and its timer retries.
	ErrTransport = errors.New("transport error")

	// ErrProtocol: malformed notification payload; the notification is
	// dropped.
	ErrProtocol = errors.New("protocol error")

	// ErrNotFound: operation referenced an unknown device or member.
	ErrNotFound = errors.New("not found")

	// ErrExhaustedRetries: MAX_RETRY exceeded; the shadow is left
	// un-synchronized, no further automatic action.
	ErrExhaustedRetries = errors.New("retries exhausted")

	// ErrConfig: schema-load failure during class registration; the class
	// is discarded and not installed.
	ErrConfig = errors.New("class config error")

	// ErrNoChange: reload observed no diff against stored config.
	ErrNoChange = errors.New("no change")

	// ErrNoMembers: set_up called on a bridge with no present members and
	// force_active is false.
	ErrNoMembers = errors.New("no members present")
)
