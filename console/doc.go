// Package console implements the interactive terminal flow of the simulation:
// create a field, add cars one by one, run, then start over or exit.
//
// Prompts and result lines follow a fixed text format so transcripts can be
// compared verbatim:
//
//	Your current list of cars are:
//	- A, (1,2) N, FFRFFFFRRL
//
//	After simulation, the result is:
//	- A, (5,4) S
//
// Invalid answers print "Error: <message>". A field map rendered with
// lipgloss can be appended to each result with WithFieldMap.
package console
