package harness

// TraceEvent records one evaluated step.
type TraceEvent struct {
	Step  int      `json:"step"`
	Op    string   `json:"op"`
	Args  []string `json:"args"`
	Kind  string   `json:"kind"`  // "number", "string", "bool" or "error"
	Value string   `json:"value"` // result text, or the error kind
	Seq   int64    `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step matched its expectation and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every evaluated step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Releases are the build IDs the assertions recorded, in order.
	Releases []string `json:"releases,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStepTrace adds an evaluated step to the trace.
func (r *Result) AddStepTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
