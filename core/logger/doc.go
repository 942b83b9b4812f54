// Package logger provides slog attribute helpers shared by the session store
// and lock packages. The helpers follow the empty Attr pattern: passing a nil
// error produces an attribute slog silently drops, so call sites stay free of
// nil checks.
//
//	log.Debug("lock attempt failed",
//		logger.Resource(resource),
//		logger.Error(err),
//	)
package logger
