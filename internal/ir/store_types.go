package ir

// NOTE: These are store-layer records, not part of the canonical IR.
// Reason rows use auto-increment IDs for ordering within an emission.

// EmissionStatus is the conformance outcome recorded for a target.
type EmissionStatus string

const (
	StatusAccepted EmissionStatus = "accepted"
	StatusRejected EmissionStatus = "rejected"
)

// Release is one build of a manifest (store-layer).
type Release struct {
	ID             string `json:"id"`   // UUIDv7 build ID
	Name           string `json:"name"` // manifest name
	Seq            int64  `json:"seq"`  // Logical clock
	Revision       string `json:"revision,omitempty"`
	ContractDigest string `json:"contract_digest"`
	ToolVersion    string `json:"tool_version"`
	IRVersion      string `json:"ir_version"`
}

// EmissionRecord is one target's bootstrap within a release (store-layer).
type EmissionRecord struct {
	ReleaseID string         `json:"release_id"`
	Target    string         `json:"target"`
	Digest    string         `json:"digest"`
	Status    EmissionStatus `json:"status"`
	Settings  Settings       `json:"settings"`
	Source    string         `json:"-"`
	Reasons   []ReasonRecord `json:"reasons,omitempty"`
}

// ReasonRecord is a stored conformance failure for one subject.
type ReasonRecord struct {
	Subject string `json:"subject"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
