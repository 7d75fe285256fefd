// Package core runs the forecast pipeline behind GET /api/data.
//
// This package holds the domain logic, independent of any transport layer.
// It can be used by web handlers, CLI tools, or tests without modification.
//
// # Pipeline
//
// [Service.Latest] performs one run:
//
//  1. List the archives linked from the configured NEMweb directory
//  2. Pick the latest one with the configured [Selection]
//  3. Download it, check its content type and parse its first entry
//
// Every run gets a uuid fetch id that is attached to its log lines and
// returned to the caller. Nothing is cached between runs.
//
// # Error Handling
//
// A failed run returns a [*FetchError] naming the stage that failed. The
// technical cause is mapped to a support code with [MapError]:
//
//   - NEMWEB001: no archives listed
//   - NEMWEB002-NEMWEB004: NEMweb unreachable, error status or timeout
//   - NEMWEB005-NEMWEB009: the archive or its CSV could not be used
//   - NEMWEB010: the run was cancelled
//
// # Hot Reload
//
// [Service.SetUpstream] swaps the upstream settings atomically, so a config
// file watcher can retarget the service while requests are in flight.
package core
