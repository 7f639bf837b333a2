// Package logx configures bugwatch's structured logging.
//
// It is a thin setup layer on top of zerolog:
//   - Console output readable (short timestamp)
//   - File output JSON-structured
//
// Components derive their own loggers with log.With().Str("comp", ...).
package logx
