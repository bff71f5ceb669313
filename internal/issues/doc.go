// Package issues models user bug reports, renders them as GitHub issues, and
// submits them to the issue relay.
package issues
