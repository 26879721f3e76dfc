// Package ai wraps the external text-completion provider behind a narrow
// contract. Provider failures and timeouts are typed so callers can route to
// the fallback responder as explicit control flow.
package ai

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/nsxzhou/haggle/backend/internal/config"
	"github.com/nsxzhou/haggle/backend/internal/model/negotiation"
)

// ProviderError wraps a completion failure, distinguishing timeouts.
type ProviderError struct {
	Timeout bool
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("completion provider timed out: %v", e.Err)
	}
	return fmt.Sprintf("completion provider failed: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Prompt is the structured input for one completion call.
type Prompt struct {
	System  string
	History []negotiation.Message
	Query   string
}

// Completer is the provider contract consumed by the turn service.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Service runs completions through an eino chain (template → chat model).
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	model string
}

// NewService compiles the completion chain from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	return &Service{chain: runnable, model: cfg.Model}, nil
}

// Model returns the configured model identifier.
func (s *Service) Model() string { return s.model }

// Complete invokes the chain and returns the raw completion text. The invoke
// runs in its own goroutine so a timed-out call's late response is discarded
// rather than merged into a later decision.
func (s *Service) Complete(ctx context.Context, p Prompt) (string, error) {
	input := map[string]any{
		"system":  p.System,
		"history": historyMessages(p.History),
		"query":   p.Query,
	}

	type result struct {
		msg *schema.Message
		err error
	}
	resultCh := make(chan result)
	started := time.Now()

	go func() {
		msg, err := s.chain.Invoke(ctx, input)
		select {
		case resultCh <- result{msg: msg, err: err}:
		case <-ctx.Done():
			// Caller already gave up; drop the late response.
			log.Printf("[ai] discarding late response after %s", time.Since(started))
		}
	}()

	select {
	case <-ctx.Done():
		return "", &ProviderError{Timeout: true, Err: ctx.Err()}
	case res := <-resultCh:
		if res.err != nil {
			return "", &ProviderError{Err: res.err}
		}
		if res.msg == nil || res.msg.Content == "" {
			return "", &ProviderError{Err: fmt.Errorf("empty completion")}
		}
		return res.msg.Content, nil
	}
}

const historyLimit = 10

func historyMessages(msgs []negotiation.Message) []*schema.Message {
	if len(msgs) == 0 {
		return nil
	}

	startIdx := 0
	if len(msgs) > historyLimit {
		startIdx = len(msgs) - historyLimit
	}

	history := make([]*schema.Message, 0, len(msgs)-startIdx)
	for _, m := range msgs[startIdx:] {
		switch m.Sender {
		case negotiation.SenderBuyer:
			history = append(history, schema.UserMessage(m.Content))
		case negotiation.SenderSeller, negotiation.SenderAgent:
			history = append(history, schema.AssistantMessage(m.Content, nil))
		}
	}
	return history
}
