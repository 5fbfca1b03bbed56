// Package ntta verifies networks of timed automata.
//
// A network's components move by ticks (guarded edges) and its
// environment moves by tocks (external updates from tockers).  The
// searcher in package 'verifier' explores the reachable states to
// answer reachability queries from package 'ctl', and it can look for
// locations that could deadlock.  The core model is in package 'core',
// and the command-line tools are in `cmd`.
package ntta

// Version is reported by the command-line tools.
const Version = "0.3.0"
