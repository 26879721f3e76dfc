package negotiation

import (
	"fmt"
	"time"
)

// Action 表示引擎对一条回复作出的结构化判定。
type Action string

const (
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionCounter  Action = "counter"
	ActionContinue Action = "continue"
)

// Known reports whether a is one of the four supported actions.
func (a Action) Known() bool {
	switch a {
	case ActionAccept, ActionReject, ActionCounter, ActionContinue:
		return true
	}
	return false
}

// MessageTypeFor maps an action onto the message type appended to history.
func (a Action) MessageTypeFor() MessageType {
	switch a {
	case ActionAccept:
		return TypeAcceptance
	case ActionReject:
		return TypeRejection
	case ActionCounter:
		return TypeCounterOffer
	default:
		return TypeMessage
	}
}

// DecisionMetadata carries provenance for one interpreted response.
type DecisionMetadata struct {
	Model      string     `json:"model,omitempty"`
	RawText    string     `json:"rawText,omitempty"`
	ElapsedMS  int64      `json:"elapsedMs,omitempty"`
	IsFallback bool       `json:"isFallback,omitempty"`
	Validation Validation `json:"validation"`
}

// Validation is the outcome of checking a Decision against the schema rules.
type Validation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Decision is the structured interpretation of one provider response.
// It is immutable once validated and appended to the conversation context.
type Decision struct {
	ID            string           `json:"id"`
	NegotiationID string           `json:"negotiationId,omitempty"`
	Action        Action           `json:"action"`
	Offer         *Offer           `json:"offer,omitempty"`
	Confidence    float64          `json:"confidence"`
	Content       string           `json:"content"`
	Reasoning     string           `json:"reasoning"`
	CreatedAt     time.Time        `json:"createdAt"`
	Metadata      DecisionMetadata `json:"metadata"`
}

// MaxContentLength caps the user-facing content of a valid decision.
const MaxContentLength = 500

// ValidateDecision checks the schema rules and accumulates every violation.
// 校验不产生副作用，非法的 Decision 依然会被返回给调用方。
func ValidateDecision(d Decision) Validation {
	var errs []string

	if d.Content == "" {
		errs = append(errs, "content is required")
	} else if len([]rune(d.Content)) > MaxContentLength {
		errs = append(errs, fmt.Sprintf("content exceeds %d characters", MaxContentLength))
	}

	if d.Action == "" {
		errs = append(errs, "action is required")
	} else if !d.Action.Known() {
		errs = append(errs, fmt.Sprintf("unknown action %q", d.Action))
	}

	if d.Confidence < 0 || d.Confidence > 1 {
		errs = append(errs, fmt.Sprintf("confidence %.3f outside [0,1]", d.Confidence))
	}

	if d.Offer != nil {
		if d.Offer.Amount <= 0 {
			errs = append(errs, fmt.Sprintf("offer amount %.2f is not positive", d.Offer.Amount))
		}
	}

	return Validation{Valid: len(errs) == 0, Errors: errs}
}
