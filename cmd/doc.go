// Package cmd implements the command-line interface of dCache. It provides a
// hierarchical command structure for running the development server and for
// talking to a cache as a client.
//
// The package is organized into several subpackages:
//
//   - cache: Commands for cache operations (get, put, getall, query, perf, ...)
//   - serve: Commands for starting and configuring the development server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dcache -help for a list of all commands.
package cmd
