/*
Package domain contains the core domain models of the Rapport dialogue engine.

It defines the authored dialogue graph (Steps and Options), the five scored
behavioral categories, the conversation transcript and the phase/activity
enumerations used by the dynamic orchestrator. This package is kept pure and
free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Step: one node of an authored dialogue graph (actor line + options).
  - Option: a user-selectable branch carrying an event id, target and score deltas.
  - Scores: fixed-cardinality per-category integer totals.
  - ConversationTurn / Transcript: the append-only log shared by both modes.
  - Phase / Activity: the coarse and fine state of a generated conversation.
*/
package domain
