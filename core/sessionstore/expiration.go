package sessionstore

import "time"

// notPresent encodes an absent expiration component on the wire.
const notPresent int64 = -1

// Options describes the expiration policy applied when a record is written
// or moved between slots.
//
// At most one of Absolute and AbsoluteFromNow may be set, and Absolute must
// lie in the future; violating either is a programming error and panics.
// Sliding resets the record's remaining lifetime on each successful read,
// but never extends it past the absolute bound. The zero value means the
// record does not expire.
type Options struct {
	// Absolute is a fixed wall-clock expiration time.
	Absolute *time.Time
	// AbsoluteFromNow sets the absolute expiration relative to the write.
	AbsoluteFromNow time.Duration
	// Sliding is the idle lifetime, reset on each successful access.
	Sliding time.Duration
}

// validate enforces the Options invariants. Violations are programmer
// errors, not runtime conditions, so they panic.
func (o Options) validate(now time.Time) {
	if o.Absolute != nil && o.AbsoluteFromNow != 0 {
		panic("sessionstore: at most one of Absolute and AbsoluteFromNow may be set")
	}
	if o.Absolute != nil && !o.Absolute.After(now) {
		panic("sessionstore: absolute expiration must be in the future")
	}
	if o.AbsoluteFromNow < 0 {
		panic("sessionstore: AbsoluteFromNow must not be negative")
	}
	if o.Sliding < 0 {
		panic("sessionstore: Sliding must not be negative")
	}
}

// absoluteUnix resolves the absolute expiration to unix seconds, rounded up
// so a bound with sub-second precision is never cut short, or notPresent
// when no absolute component is set. A valid future bound therefore always
// yields a remainder of at least one second.
func (o Options) absoluteUnix(now time.Time) int64 {
	switch {
	case o.Absolute != nil:
		return unixCeil(*o.Absolute)
	case o.AbsoluteFromNow > 0:
		return unixCeil(now.Add(o.AbsoluteFromNow))
	default:
		return notPresent
	}
}

// slidingSeconds resolves the sliding expiration to whole seconds (rounded
// up so sub-second policies still persist), or notPresent when unset.
func (o Options) slidingSeconds() int64 {
	if o.Sliding <= 0 {
		return notPresent
	}
	return ceilSeconds(o.Sliding)
}

// ttlSeconds computes the record's initial remaining lifetime:
// min(absolute-now, sliding) when both components are set, else whichever is
// set, else notPresent (no expiry).
func (o Options) ttlSeconds(now time.Time) int64 {
	abs := o.absoluteUnix(now)
	sld := o.slidingSeconds()
	switch {
	case abs != notPresent && sld != notPresent:
		return min(sld, abs-now.Unix())
	case sld != notPresent:
		return sld
	case abs != notPresent:
		return abs - now.Unix()
	default:
		return notPresent
	}
}

// refreshTTLSeconds recomputes the remaining lifetime of a stored record on
// a successful read. It mirrors ttlSeconds but works from the persisted
// absexp/sldexp fields; a record without a sliding component keeps whatever
// lifetime it already has, signalled by notPresent.
func refreshTTLSeconds(absexp, sldexp, nowUnix int64) int64 {
	if sldexp == notPresent {
		return notPresent
	}
	ttl := sldexp
	if absexp != notPresent {
		if remaining := absexp - nowUnix; remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}

// remainingTTLSeconds resolves a stored record's full remaining lifetime
// when the record is rewritten in place: the sliding refresh when a sliding
// component exists, otherwise whatever the absolute bound leaves.
func remainingTTLSeconds(absexp, sldexp, nowUnix int64) int64 {
	if sldexp != notPresent {
		return refreshTTLSeconds(absexp, sldexp, nowUnix)
	}
	if absexp != notPresent {
		return absexp - nowUnix
	}
	return notPresent
}

func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func unixCeil(t time.Time) int64 {
	if t.Nanosecond() > 0 {
		return t.Unix() + 1
	}
	return t.Unix()
}
