// Package cli implements the interactive Tally shell.
//
// The REPL reads commands from stdin and dispatches to the domain stores.
// Connectivity is probed in the background; record commands keep working
// offline and their mutations are replayed once the server is reachable.
//
// See App, Root and the per-domain command files for details.
package cli
