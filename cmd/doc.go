// Package cmd implements the command-line interface of envstore. It loads the
// environment from the configured locations, runs one operation on it and
// optionally saves it again.
//
// The package is organized into several subpackages:
//
//   - env: Commands for the environment (print, grep, set, delete, exists,
//     save, load, erase, default, info, export, import)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See envstore -help for a list of all commands.
package cmd
