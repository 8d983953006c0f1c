package mirror

// Op identifies a reconciliation operation against the replica tree.
type Op string

const (
	OpCreateDir  Op = "create_dir"
	OpCopyFile   Op = "copy_file"
	OpDeleteFile Op = "delete_file"
	OpDeleteDir  Op = "delete_dir"
)

// Action records one operation applied to the replica, identified by
// the affected path relative to the replica root.
type Action struct {
	Op   Op
	Path string
}

// Failure records a per-item filesystem operation that failed. A
// failure never aborts its pass; the next cycle re-attempts the path
// from scratch.
type Failure struct {
	Op   Op
	Path string
	Err  error
}

// Result is the outcome of one reconciliation cycle: the ordered list
// of actions applied and the per-item failures encountered. It is not
// retained across cycles.
type Result struct {
	Actions  []Action
	Failures []Failure
}
