package lock

// Status describes the state of a single lock acquisition attempt.
type Status int

const (
	// StatusUnlocked means the handle was released explicitly.
	StatusUnlocked Status = iota
	// StatusAcquired means the handle currently holds the lock.
	StatusAcquired
	// StatusConflicted means another holder owns the resource.
	StatusConflicted
	// StatusExpired means the lock's lifetime elapsed without a release.
	StatusExpired
	// StatusNoQuorum means the distributed backing could not reach enough
	// nodes to decide ownership. Remote backings only.
	StatusNoQuorum
)

// String returns a human-readable status name for logging.
func (s Status) String() string {
	switch s {
	case StatusUnlocked:
		return "unlocked"
	case StatusAcquired:
		return "acquired"
	case StatusConflicted:
		return "conflicted"
	case StatusExpired:
		return "expired"
	case StatusNoQuorum:
		return "no quorum"
	default:
		return "unknown"
	}
}
