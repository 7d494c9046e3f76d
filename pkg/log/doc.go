// Package log provides structured logging for eldispacho using zerolog.
//
// A single global Logger is configured once via Init and shared by every
// package. Component loggers (WithComponent, WithNodeID, WithTopic,
// WithRequestID) attach context fields without re-specifying them at every
// call site.
package log
