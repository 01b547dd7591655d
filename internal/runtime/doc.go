// Package runtime drives playthroughs of dialogue graphs.
//
// Machine walks a compiled graph event by event (static mode).
// Orchestrator runs a generated conversation through its phases, asking a
// generation client for actor turns and for analyses of user input
// (dynamic mode, optionally seeded by a graph in hybrid mode).
package runtime
