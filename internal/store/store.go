// Package store defines the persistence collaborators the engine consumes.
// The engine itself never owns persistence; these are narrow contracts with
// in-memory and sqlite implementations.
package store

import (
	"context"
	"errors"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

var (
	ErrNegotiationNotFound = errors.New("negotiation not found")
	ErrNegotiationExists   = errors.New("negotiation already exists")
)

// HistoryOptions bounds a history read. Zero Limit means no bound.
type HistoryOptions struct {
	Limit int
}

// NegotiationStore loads and saves negotiation aggregates.
type NegotiationStore interface {
	Create(ctx context.Context, n *negotiation.Negotiation) error
	Load(ctx context.Context, id string) (negotiation.Negotiation, error)
	Update(ctx context.Context, n negotiation.Negotiation) error
}

// MessageHistory appends and reads a negotiation's conversation, always in
// timestamp order. Both operations return ErrNegotiationNotFound for an
// unknown negotiation id.
type MessageHistory interface {
	Append(ctx context.Context, m negotiation.Message) error
	History(ctx context.Context, negotiationID string, opts HistoryOptions) ([]negotiation.Message, error)
}
