package core

import "time"

// FailureKind classifies why an address did not verify.
type FailureKind string

const (
	FailureNone       FailureKind = ""
	FailureInput      FailureKind = "input"
	FailureResolution FailureKind = "resolution"
	FailureConnect    FailureKind = "connect"
	FailureInternal   FailureKind = "internal"
)

// Failure reasons surfaced to users. Resolution and connect reasons carry
// the underlying error after the prefix.
const (
	ReasonEmptyAddress  = "empty address"
	ReasonInvalidFormat = "invalid format"
	ReasonDNSPrefix     = "dns resolution failed: "
	ReasonSMTPPrefix    = "smtp connect failed: "
	ReasonInternal      = "internal error: "
)

// CheckResult is the outcome of verifying one address. It is not modified
// after the validator returns it.
//
// SMTPReachable only means a TCP connection to port 25 of the first MX host
// succeeded. No MAIL FROM/RCPT TO exchange takes place, so it says nothing
// about whether the mailbox exists.
type CheckResult struct {
	Index         int         `json:"index"`
	Address       string      `json:"address"`
	SyntaxValid   bool        `json:"syntax_valid"`
	HasMX         bool        `json:"has_mx"`
	MXHosts       []string    `json:"mx_hosts"`
	SMTPReachable bool        `json:"smtp_reachable"`
	OverallValid  bool        `json:"overall_valid"`
	FailureKind   FailureKind `json:"failure_kind,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	ElapsedMillis int64       `json:"elapsed_ms"`
	CheckedAt     time.Time   `json:"checked_at"`
}

// Outcome returns "valid" or "invalid" for metrics and listings.
func (r *CheckResult) Outcome() string {
	if r != nil && r.OverallValid {
		return "valid"
	}
	return "invalid"
}
