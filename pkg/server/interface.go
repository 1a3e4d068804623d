/*
Package server implements msgpack IPC for the entity linker.

The server provides a minimal interface for host editors: clients write msgpack
maps to stdin and read one msgpack map per request from stdout.
Messages are processed synchronously with timing info included in responses.

# IPC

Every request carries an ID echoed in its response and an action.
A link request sends a note path and, optionally, its current text. When the text is
missing it is read from the vault:

	{"id": "req_001", "action": "link", "path": "daily/2025-06-01.md", "text": "Met the GL team."}

The server answers with the final matches. Positions are byte offsets into the text:

	{"id": "req_001", "links": [{"s": 8, "e": 10, "x": "GL", "to": ["Glossary.md"], "a": true}], "linked": ["Glossary.md"], "c": 1, "t": 85}

Clients that annotate a note piece by piece pass the returned "linked" list with
the next request so that every entity is linked once per note.

Completion requests keep the short field names of the completion protocol:

	{"id": "req_002", "action": "complete", "p": "cell", "l": 10}
	{"id": "req_002", "s": [{"n": "Cell Biology", "id": "bio/Cell Biology.md"}], "c": 1, "t": 12}

A request without an action but with a prefix is treated as a completion request.

refresh reloads the hinted paths, or the whole vault when none are given, and
health reports the index size:

	{"id": "req_003", "action": "refresh", "paths": ["Glossary.md"]}
	{"id": "req_004", "action": "health"}

Failures are reported as {"id": ..., "e": message, "c": code} with HTTP like codes.
A request that cannot be decoded ends the session, since the stream cannot be resynchronized.
*/
package server

import "github.com/bastiangx/wordlink/pkg/linker"

// Actions understood by the server.
const (
	ActionLink     = "link"
	ActionComplete = "complete"
	ActionRefresh  = "refresh"
	ActionHealth   = "health"
)

// Request is the union of every request shape.
type Request struct {
	ID     string   `msgpack:"id"`
	Action string   `msgpack:"action,omitempty"`
	Path   string   `msgpack:"path,omitempty"`
	Text   string   `msgpack:"text,omitempty"`
	Linked []string `msgpack:"linked,omitempty"`
	Prefix string   `msgpack:"p,omitempty"`
	Limit  int      `msgpack:"l,omitempty"`
	Paths  []string `msgpack:"paths,omitempty"`
}

// LinkSpan is one final match.
type LinkSpan struct {
	Start   int      `msgpack:"s"`
	End     int      `msgpack:"e"`
	Text    string   `msgpack:"x"`
	Targets []string `msgpack:"to"`
	Alias   bool     `msgpack:"a,omitempty"`
	Partial bool     `msgpack:"w,omitempty"`
}

// LinkResponse answers a link request.
type LinkResponse struct {
	ID        string     `msgpack:"id"`
	Links     []LinkSpan `msgpack:"links"`
	Linked    []string   `msgpack:"linked"`
	Count     int        `msgpack:"c"`
	TimeTaken int64      `msgpack:"t"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string              `msgpack:"id"`
	Suggestions []linker.Suggestion `msgpack:"s"`
	Count       int                 `msgpack:"c"`
	TimeTaken   int64               `msgpack:"t"`
}

// RefreshResponse answers a refresh request.
type RefreshResponse struct {
	ID        string              `msgpack:"id"`
	Status    string              `msgpack:"status"`
	Stats     linker.RefreshStats `msgpack:"stats"`
	Entities  int                 `msgpack:"n"`
	TimeTaken int64               `msgpack:"t"`
}

// HealthResponse answers a health request.
type HealthResponse struct {
	ID       string `msgpack:"id"`
	Status   string `msgpack:"status"`
	Entities int    `msgpack:"n"`
	Names    int    `msgpack:"names"`
}

// ErrorResponse holds basic error information for any request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
