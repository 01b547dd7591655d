/*
Package observability provides lifecycle hooks for monitoring conversations.

It includes debug logging of every transition, Prometheus collectors fed by
the hooks, and Merge to combine several hook sets on one playthrough.
*/
package observability
