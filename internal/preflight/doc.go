// Package preflight provides readiness checks for the shared directory, the
// shared documents and the external binaries a display instance depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failure with a hint;
//     nothing here stops the instance from starting, because a share that is
//     down now may be back by the next poll.
//   - The CLI "manifestboard doctor" command prints the same results as a table.
//
// Document checks never mutate: a missing document is reported, not created,
// and a corrupt one is not backed up.
package preflight
