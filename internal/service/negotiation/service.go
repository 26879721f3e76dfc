// Package negotiation orchestrates one conversation turn: load the aggregate,
// fetch history, call the completion provider, interpret or fall back, record
// the decision and append the outbound message.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
	"github.com/nsxzhou/haggle/backend/internal/model/persona"
	"github.com/nsxzhou/haggle/backend/internal/service/ai"
	"github.com/nsxzhou/haggle/backend/internal/service/interpreter"
	"github.com/nsxzhou/haggle/backend/internal/store"
)

var (
	ErrConcluded      = errors.New("negotiation already concluded")
	ErrInvalidMessage = errors.New("message content is required")
)

// Publisher receives every recorded decision, e.g. for a live feed. Optional.
type Publisher interface {
	Publish(negotiationID string, d negotiation.Decision)
}

// Config tunes the turn service.
type Config struct {
	ProviderTimeout time.Duration
	HistoryLimit    int
}

// Service drives negotiation turns end to end.
type Service struct {
	negotiations store.NegotiationStore
	history      store.MessageHistory
	completer    ai.Completer // nil routes every turn to the fallback responder
	interp       *interpreter.Interpreter
	fallback     *interpreter.FallbackResponder
	personas     persona.Store
	publisher    Publisher
	cfg          Config
	now          func() time.Time
	model        string
}

// NewService wires the turn service. completer and publisher may be nil.
func NewService(
	negotiations store.NegotiationStore,
	history store.MessageHistory,
	completer ai.Completer,
	interp *interpreter.Interpreter,
	fallback *interpreter.FallbackResponder,
	personas persona.Store,
	publisher Publisher,
	cfg Config,
) *Service {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 15 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Service{
		negotiations: negotiations,
		history:      history,
		completer:    completer,
		interp:       interp,
		fallback:     fallback,
		personas:     personas,
		publisher:    publisher,
		cfg:          cfg,
		now:          time.Now,
	}
}

// WithNow injects a time source, used by tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// IncomingMessage is one buyer (or seller) turn.
type IncomingMessage struct {
	Sender  negotiation.Sender `json:"sender"`
	Content string             `json:"content"`
	Offer   *float64           `json:"offer,omitempty"`
}

// Create validates and stores a new negotiation.
func (s *Service) Create(ctx context.Context, n *negotiation.Negotiation) error {
	if n.BasePrice <= 0 {
		return fmt.Errorf("base price must be positive")
	}
	if n.MinPrice <= 0 || n.MinPrice > n.BasePrice {
		return fmt.Errorf("min price must be positive and at most the base price")
	}
	if n.MaxRounds < 1 {
		return fmt.Errorf("max rounds must be at least 1")
	}
	if n.Status == "" {
		n.Status = negotiation.StatusInitiated
	}
	if n.CurrentOffer == 0 {
		n.CurrentOffer = n.BasePrice
	}
	return s.negotiations.Create(ctx, n)
}

// Load retrieves a negotiation.
func (s *Service) Load(ctx context.Context, id string) (negotiation.Negotiation, error) {
	return s.negotiations.Load(ctx, id)
}

// History returns the stored conversation for a negotiation.
func (s *Service) History(ctx context.Context, id string, limit int) ([]negotiation.Message, error) {
	return s.history.History(ctx, id, store.HistoryOptions{Limit: limit})
}

// ProcessTurn handles one incoming message and returns the engine's decision.
// The buyer always receives some response, real or fallback; only input
// failures (unknown negotiation, malformed message) surface as errors.
func (s *Service) ProcessTurn(ctx context.Context, negotiationID string, in IncomingMessage) (negotiation.Decision, error) {
	if in.Content == "" {
		return negotiation.Decision{}, ErrInvalidMessage
	}
	if in.Sender == "" {
		in.Sender = negotiation.SenderBuyer
	}

	neg, err := s.negotiations.Load(ctx, negotiationID)
	if err != nil {
		return negotiation.Decision{}, err
	}
	if neg.Status.Terminal() {
		return negotiation.Decision{}, ErrConcluded
	}

	if in.Offer != nil && *in.Offer > 0 {
		neg.CurrentOffer = *in.Offer
	}

	inbound := negotiation.Message{
		ID:            uuid.NewString(),
		NegotiationID: neg.ID,
		Sender:        in.Sender,
		Content:       in.Content,
		Type:          negotiation.TypeMessage,
		CreatedAt:     s.now(),
	}
	if in.Offer != nil && *in.Offer > 0 {
		inbound.Type = negotiation.TypeOffer
		inbound.Offer = &negotiation.Offer{Amount: *in.Offer, Source: negotiation.SourceExtracted}
	}
	if err := s.history.Append(ctx, inbound); err != nil {
		return negotiation.Decision{}, fmt.Errorf("append inbound message: %w", err)
	}

	history, err := s.history.History(ctx, neg.ID, store.HistoryOptions{Limit: s.cfg.HistoryLimit})
	if err != nil {
		return negotiation.Decision{}, fmt.Errorf("load history: %w", err)
	}

	ictx := interpreter.Context{
		NegotiationID: neg.ID,
		PersonaID:     neg.PersonaID,
		BasePrice:     neg.BasePrice,
		MinPrice:      neg.MinPrice,
		CurrentOffer:  neg.CurrentOffer,
		Rounds:        neg.Rounds,
		MaxRounds:     neg.MaxRounds,
	}

	decision := s.decide(ctx, neg, history, in.Content, ictx)

	if err := s.applyDecision(ctx, &neg, decision); err != nil {
		return negotiation.Decision{}, err
	}

	if s.publisher != nil {
		s.publisher.Publish(neg.ID, decision)
	}
	return decision, nil
}

// decide runs the provider + interpreter path, or the fallback responder when
// the provider is unavailable, errors out or times out.
func (s *Service) decide(ctx context.Context, neg negotiation.Negotiation, history []negotiation.Message, incoming string, ictx interpreter.Context) negotiation.Decision {
	if s.completer == nil {
		return s.fallback.Respond(ictx)
	}

	var p *persona.Persona
	if s.personas != nil && neg.PersonaID != "" {
		if found, ok := s.personas.FindByID(neg.PersonaID); ok {
			p = &found
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	started := s.now()
	text, err := s.completer.Complete(callCtx, ai.BuildPrompt(neg, p, history, incoming))
	if err != nil {
		var pe *ai.ProviderError
		if errors.As(err, &pe) && pe.Timeout {
			log.Printf("[turn] provider timeout for negotiation=%s, using fallback", neg.ID)
		} else {
			log.Printf("[turn] provider failure for negotiation=%s: %v, using fallback", neg.ID, err)
		}
		return s.fallback.Respond(ictx)
	}

	decision := s.interp.Interpret(text, ictx)
	decision.Metadata.Model = s.model
	decision.Metadata.ElapsedMS = s.now().Sub(started).Milliseconds()
	return decision
}

// applyDecision advances the aggregate and appends the outbound message.
// Rounds never exceeds MaxRounds, whatever the deciders returned.
func (s *Service) applyDecision(ctx context.Context, neg *negotiation.Negotiation, d negotiation.Decision) error {
	if neg.Rounds < neg.MaxRounds {
		neg.Rounds++
	}
	switch d.Action {
	case negotiation.ActionAccept:
		neg.Status = negotiation.StatusAccepted
		t := s.now()
		neg.ConcludedAt = &t
	case negotiation.ActionReject:
		neg.Status = negotiation.StatusRejected
		t := s.now()
		neg.ConcludedAt = &t
	case negotiation.ActionCounter:
		neg.Status = negotiation.StatusInProgress
		if d.Offer != nil {
			neg.CurrentOffer = d.Offer.Amount
		}
	default:
		neg.Status = negotiation.StatusInProgress
	}

	if err := s.negotiations.Update(ctx, *neg); err != nil {
		return fmt.Errorf("update negotiation: %w", err)
	}

	content := d.Content
	if content == "" {
		content = d.Reasoning
	}
	outbound := negotiation.Message{
		ID:            uuid.NewString(),
		NegotiationID: neg.ID,
		Sender:        negotiation.SenderAgent,
		Content:       content,
		Type:          d.Action.MessageTypeFor(),
		Offer:         d.Offer,
		CreatedAt:     s.now(),
	}
	if err := s.history.Append(ctx, outbound); err != nil {
		return fmt.Errorf("append outbound message: %w", err)
	}
	return nil
}

// SetModel records the provider model id stamped onto decisions.
func (s *Service) SetModel(model string) {
	s.model = model
}
