// Package log captures BGAPI protocol traffic as structured events.
//
// Capture is separate from operational logging. A session reports every
// frame it writes or reassembles, every decoded message, each busy/idle
// transition and each dropped frame to a Logger. The Logger decides where
// the events go:
//
//	// Console during development
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Capture file for later inspection with bgapi-log
//	fl, _ := log.NewFileLogger("captures/dongle.blog")
//	cfg.ProtocolLogger = fl
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// Capture files are a plain stream of CBOR-encoded events with integer map
// keys. Reader streams them back with an optional Filter.
package log
