// Package tracker implements types.Tracker: BD drives the beads CLI as a
// black-box process exchanging JSON, and Memory is an in-process tracker
// used by tests and dry runs.
package tracker
