// Package connection keeps a session attached to a TCP serial bridge.
//
// A Dialer resolves the bridge address (fixed, or found by mDNS), dials it
// and retries with jittered exponential backoff:
//
//	500ms, 1s, 2s, 4s, ... up to 30s, plus up to 25% jitter
//
// Reconnect dials a fresh port and attaches it to an existing session,
// which resets the session's reassembler and busy flag while keeping its
// subscriptions. The old port is closed.
package connection
