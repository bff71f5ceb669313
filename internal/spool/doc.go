// Package spool keeps log events the backend refused in a local SQLite
// database so they can be counted, inspected, and resent later.
package spool
