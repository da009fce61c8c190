// Package shared is the lock-free document layer every instance uses to
// coordinate through the network share.
//
// A Document is a single JSON file that any instance may read or replace at
// any time. There is no locking: writes replace the whole file atomically and
// the last writer wins. Change detection compares file stamps (modification
// time and size) so pollers can tell when another instance wrote. Parse
// failures back the file up to "<path>.bak" and surface a *CorruptError while
// callers continue with the document's default value.
//
// Keeping the contract in one place means a future move to real locking or a
// message queue only has to touch this package.
package shared
