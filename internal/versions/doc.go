// Package versions answers "what version is this and is there a newer one".
//
// Manager keeps a cache-aside copy of the latest upstream release. A
// successful lookup is cached until ClearCache; a failed lookup yields a
// fallback Info describing the local build and is never cached, so the next
// call goes back to the network. Compare orders dotted version strings
// numerically per component.
package versions
