/*
Package session keeps the live conversations of a process.

A Manager maps session ids to running orchestrators, serializes the
lifecycle operations of each id with reference-counted locks and falls back
to the result store once a conversation has ended and left memory.
*/
package session
