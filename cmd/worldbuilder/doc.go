// Command worldbuilder is the operator CLI for the worldbuilder API toolkit.
//
// It checks for new releases, lists GitHub releases, submits bug reports
// through the issue relay, writes structured events to the backend log
// table, queries backend tables, and manages the local spool of events that
// could not be delivered.
package main
