package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// stubRunnable stands in for the compiled chain; only Invoke matters here.
type stubRunnable struct {
	invoke func(ctx context.Context, in map[string]any) (*schema.Message, error)
}

func (s *stubRunnable) Invoke(ctx context.Context, in map[string]any, _ ...compose.Option) (*schema.Message, error) {
	return s.invoke(ctx, in)
}

func (s *stubRunnable) Stream(context.Context, map[string]any, ...compose.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (s *stubRunnable) Collect(context.Context, *schema.StreamReader[map[string]any], ...compose.Option) (*schema.Message, error) {
	return nil, errors.New("not implemented")
}

func (s *stubRunnable) Transform(context.Context, *schema.StreamReader[map[string]any], ...compose.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func testService(invoke func(ctx context.Context, in map[string]any) (*schema.Message, error)) *Service {
	return &Service{chain: &stubRunnable{invoke: invoke}, model: "test-model"}
}

func TestCompleteReturnsChainText(t *testing.T) {
	svc := testService(func(_ context.Context, in map[string]any) (*schema.Message, error) {
		if in["query"] != "how much?" {
			t.Fatalf("unexpected query: %v", in["query"])
		}
		return &schema.Message{Content: "I can do 800."}, nil
	})

	text, err := svc.Complete(context.Background(), Prompt{Query: "how much?"})
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if text != "I can do 800." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestCompleteTimeoutWithSlowChain(t *testing.T) {
	released := make(chan struct{})
	svc := testService(func(ctx context.Context, _ map[string]any) (*schema.Message, error) {
		// Outlive the caller, then answer anyway.
		<-ctx.Done()
		close(released)
		return &schema.Message{Content: "too late"}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Complete(ctx, Prompt{Query: "q"})
	var pe *ProviderError
	if !errors.As(err, &pe) || !pe.Timeout {
		t.Fatalf("expected timeout ProviderError, got %v", err)
	}

	// The chain goroutine must still unwind, discarding its late result.
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("chain invoke never returned")
	}
}

func TestCompleteWrapsChainError(t *testing.T) {
	svc := testService(func(context.Context, map[string]any) (*schema.Message, error) {
		return nil, errors.New("upstream down")
	})

	_, err := svc.Complete(context.Background(), Prompt{Query: "q"})
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Timeout {
		t.Fatalf("expected non-timeout ProviderError, got %v", err)
	}
}

func TestCompleteRejectsEmptyCompletion(t *testing.T) {
	svc := testService(func(context.Context, map[string]any) (*schema.Message, error) {
		return &schema.Message{}, nil
	})

	_, err := svc.Complete(context.Background(), Prompt{Query: "q"})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}
