// Package mechanism holds the open-loop subsystems around the launcher:
// intake, indexer, roller, conveyor and pneumatic pistons. None of them
// run a background loop; profiled moves are handed to the motors'
// on-board controllers and polled where a caller needs to block.
package mechanism
