package track

import "time"

// Status is the tracked lifecycle state of a submitted transaction.
type Status int

const (
	StatusSubmitted Status = iota
	StatusAccepted
	StatusFinalized
	// StatusPending means the poll budget ran out while the transaction was
	// still unsettled. Outcome unknown, check back later. Not an error.
	StatusPending
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusFinalized:
		return "FINALIZED"
	case StatusPending:
		return "PENDING"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus is the inverse of String; unknown input maps to StatusSubmitted.
func ParseStatus(text string) Status {
	switch text {
	case "ACCEPTED":
		return StatusAccepted
	case "FINALIZED":
		return StatusFinalized
	case "PENDING":
		return StatusPending
	case "FAILED":
		return StatusFailed
	default:
		return StatusSubmitted
	}
}

// Terminal reports whether the poller stops at this state.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusPending || s == StatusFailed
}

// canAdvance encodes the allowed forward edges:
// SUBMITTED -> {ACCEPTED -> FINALIZED} | PENDING | FAILED.
// A state never regresses and terminal exits only leave SUBMITTED or ACCEPTED.
func canAdvance(from, to Status) bool {
	switch from {
	case StatusSubmitted:
		return to == StatusAccepted || to == StatusPending || to == StatusFailed
	case StatusAccepted:
		return to == StatusFinalized || to == StatusFailed
	default:
		return false
	}
}

// Record 是单笔已提交交易的跟踪状态，属主是 Store，Poller 是唯一修改者。
type Record struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Status    Status `json:"-"`

	SubmittedAt time.Time `json:"submitted_at"`
	AcceptedAt  time.Time `json:"accepted_at,omitempty"`
	FinalizedAt time.Time `json:"finalized_at,omitempty"`

	// Err carries the human-readable reason when Status is PENDING or FAILED.
	Err string `json:"error,omitempty"`
}

// StatusText is the wire form of Status for HTTP/JSON consumers.
func (r Record) StatusText() string {
	return r.Status.String()
}
