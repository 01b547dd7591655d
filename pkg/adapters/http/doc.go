/*
Package http exposes generated conversations over a JSON API.

	POST /sessions                  create a conversation
	GET  /sessions/{id}             snapshot, or the stored result once ended
	POST /sessions/{id}/start       opening actor turn
	POST /sessions/{id}/input       {"text": "..."}
	POST /sessions/{id}/select      {"id": "..."}
	POST /sessions/{id}/retry       resume after a generation error
	POST /sessions/{id}/end         complete and return the result
	GET  /sessions/{id}/events      server-sent events of turns, phases and activities
	POST /graphs/validate           compile and lint a YAML or JSON graph
	GET  /metrics                   Prometheus metrics
	GET  /health
*/
package http
