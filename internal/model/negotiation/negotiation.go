package negotiation

import "time"

// Status 表示一次议价会话的生命周期状态。
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusInProgress Status = "in_progress"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
)

// Terminal reports whether the status ends the negotiation.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusExpired
}

// Sender identifies who produced a message.
type Sender string

const (
	SenderBuyer  Sender = "buyer"
	SenderSeller Sender = "seller"
	SenderAgent  Sender = "automated-agent"
)

// MessageType classifies a conversation turn.
type MessageType string

const (
	TypeMessage      MessageType = "message"
	TypeOffer        MessageType = "offer"
	TypeCounterOffer MessageType = "counter_offer"
	TypeAcceptance   MessageType = "acceptance"
	TypeRejection    MessageType = "rejection"
	TypeSystem       MessageType = "system"
)

// OfferSource records how an offer amount was derived.
type OfferSource string

const (
	SourceExtracted  OfferSource = "extracted"
	SourceCalculated OfferSource = "calculated"
	SourceFallback   OfferSource = "fallback"
)

// Offer is a proposed price with provenance.
type Offer struct {
	Amount float64     `json:"amount"`
	Final  bool        `json:"final"`
	Source OfferSource `json:"source,omitempty"`
}

// Negotiation captures a single buyer/seller haggling session over one listing.
type Negotiation struct {
	ID           string     `json:"id"`
	ProductID    string     `json:"productId"`
	PersonaID    string     `json:"personaId,omitempty"`
	BasePrice    float64    `json:"basePrice"`
	MinPrice     float64    `json:"minPrice"`
	CurrentOffer float64    `json:"currentOffer"`
	Rounds       int        `json:"rounds"`
	MaxRounds    int        `json:"maxRounds"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	ConcludedAt  *time.Time `json:"concludedAt,omitempty"`
}

// Message persists one turn of the conversation for audit and analytics.
// Messages for a negotiation are totally ordered by CreatedAt.
type Message struct {
	ID            string      `json:"id"`
	NegotiationID string      `json:"negotiationId"`
	Sender        Sender      `json:"sender"`
	Content       string      `json:"content"`
	Type          MessageType `json:"type"`
	Offer         *Offer      `json:"offer,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}
