// Package common holds the pieces shared by every layer of the environment
// store: the typed error system, the configuration struct and the logger
// factory.
//
// Error System:
//
//	All packages report failures as *Error values carrying a RetCode. The codes
//	mirror the failure kinds of the store (checksum mismatch, truncated or
//	malformed payload, encode too large, unsupported backend, backend I/O
//	failure, no valid copy). Callers inspect them with IsCode or CodeOf, or
//	with errors.Is against another *Error of the same code.
//
// Configuration:
//
//	EnvConfig describes the environment size, the redundancy mode, the
//	backends in load priority order and the parameters of each backend. Its
//	String method renders a sectioned dump used by the CLI.
//
// Logging:
//
//	The store logs through the dragonboat logger package. InitLoggers installs
//	a factory producing "LEVEL | package | message" lines and applies the
//	configured level to the named loggers (env, redund, backend, cli).
package common
