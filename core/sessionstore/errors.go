package sessionstore

import "errors"

var (
	// ErrNotFound is returned when neither the regular nor the evicted slot
	// holds a record for the key.
	ErrNotFound = errors.New("session not found")
	// ErrSessionInProgress is returned by Add when the regular record already
	// exists; the existing record accompanies the error.
	ErrSessionInProgress = errors.New("session already in progress")
	// ErrSessionFinished is returned when an operation targeting the regular
	// slot finds the record in the evicted slot instead.
	ErrSessionFinished = errors.New("session already finished")
	// ErrSessionRestored is returned when an operation targeting the evicted
	// slot finds the record in the regular slot instead.
	ErrSessionRestored = errors.New("session already restored")
	// ErrProtocolViolation is returned when the backing store replies with a
	// shape the script contract does not define. It indicates a defect, not
	// a transient condition.
	ErrProtocolViolation = errors.New("session store protocol violation")
	// ErrScriptRetryExhausted is returned when the EVALSHA/script-load
	// fallback kept missing the script cache past the configured attempts.
	ErrScriptRetryExhausted = errors.New("session store script retries exhausted")
	// ErrSerialization is returned when the session payload cannot be
	// marshaled or unmarshaled at the store boundary.
	ErrSerialization = errors.New("failed to serialize session payload")
)
