package domain

// MemoryTarget is the reserved physical name of the non-persistent storage unit.
const MemoryTarget = ":memory:"

// DefaultTarget is used when a request names no storage unit.
const DefaultTarget = "default"

// Statement is one SQL statement with its positional parameters.
// Rows holds parameter tuples and is only consulted for batch requests.
type Statement struct {
	SQL  string  `msgpack:"sql"`
	Args []any   `msgpack:"args,omitempty"`
	Rows [][]any `msgpack:"rows,omitempty"`
}

// Request is the unit of work of the execute operation: all statements run
// in order inside one transaction against the storage unit named by Target.
type Request struct {
	Target   string      `msgpack:"target"`
	Commands []Statement `msgpack:"commands"`
	Batch    bool        `msgpack:"batch,omitempty"`
}

// Response carries the rows produced by all statements of a request, concatenated.
type Response struct {
	Rows [][]any `msgpack:"rows"`
}

// NewRequest builds a single-statement request.
func NewRequest(target, sql string, args ...any) Request {
	return Request{Target: target, Commands: []Statement{{SQL: sql, Args: args}}}
}

// SQLText returns the statement texts, for diagnostics.
func (r *Request) SQLText() []string {
	out := make([]string, len(r.Commands))
	for i, c := range r.Commands {
		out[i] = c.SQL
	}
	return out
}

// Validate checks that the request is executable.
func (r *Request) Validate() error {
	if len(r.Commands) == 0 {
		return NewValidation("commands", "at least one statement is required")
	}
	for _, c := range r.Commands {
		if c.SQL == "" {
			return NewValidation("commands", "statement text is empty")
		}
	}
	return nil
}
