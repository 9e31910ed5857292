package harness

// TraceEvent records the outcome of one step.
type TraceEvent struct {
	Step  int    `json:"step"`
	Node  string `json:"node"`
	Op    string `json:"op"`
	Ref   string `json:"ref,omitempty"`
	TxID  string `json:"tx_id,omitempty"`
	State string `json:"state,omitempty"`
	Bytes int    `json:"bytes,omitempty"`
	Error string `json:"error,omitempty"`
}

// LedgerRow is a transaction row in a node snapshot.
type LedgerRow struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Origin      string `json:"origin"`
	Whereabouts string `json:"whereabouts"`
	Seq         int64  `json:"seq"`
}

// LedgerEvent is a journaled event in a node snapshot.
type LedgerEvent struct {
	TxID   string         `json:"tx_id"`
	Kind   string         `json:"kind"`
	Detail map[string]any `json:"detail"`
	Seq    int64          `json:"seq"`
}

// NodeSnapshot is a node's ledger after the steps ran.
type NodeSnapshot struct {
	Transactions []LedgerRow   `json:"transactions"`
	Events       []LedgerEvent `json:"events"`
	Live         int           `json:"live"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent            `json:"trace"`
	Errors []string                `json:"errors,omitempty"`
	Nodes  map[string]NodeSnapshot `json:"nodes"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Nodes:  make(map[string]NodeSnapshot),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
