package timeout

import (
	"context"
	"errors"
	"testing"
	"time"

	"grindhub/pkg/agent/llm"
	"grindhub/pkg/agent/llmerrors"
)

type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
	<-ctx.Done()
	return llm.CompletionResponse{}, ctx.Err()
}

func (blockingClient) GetModelName() string { return "blocking" }

type instantClient struct{}

func (instantClient) Complete(context.Context, llm.CompletionRequest) (llm.CompletionResponse, error) {
	return llm.CompletionResponse{Content: "fast"}, nil
}

func (instantClient) GetModelName() string { return "instant" }

// TestDeadlineBecomesTransportError checks expiry maps onto the transport kind.
func TestDeadlineBecomesTransportError(t *testing.T) {
	client := Middleware(10 * time.Millisecond)(blockingClient{})

	_, err := client.Complete(context.Background(), llm.CompletionRequest{})
	if !llmerrors.Is(err, llmerrors.ErrorTypeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("transport error should wrap the deadline")
	}
}

// TestCallerCancellationPassesThrough leaves the caller's own cancellation unclassified.
func TestCallerCancellationPassesThrough(t *testing.T) {
	client := Middleware(time.Minute)(blockingClient{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, llm.CompletionRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if llmerrors.Is(err, llmerrors.ErrorTypeTransport) {
		t.Error("caller cancellation should not be reclassified")
	}
}

// TestFastRequest is untouched by the deadline.
func TestFastRequest(t *testing.T) {
	client := Middleware(time.Second)(instantClient{})
	resp, err := client.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil || resp.Content != "fast" {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
	if client.GetModelName() != "instant" {
		t.Error("model name should delegate")
	}
}

// TestZeroDurationDisables returns the client unchanged.
func TestZeroDurationDisables(t *testing.T) {
	base := instantClient{}
	if Middleware(0)(base) != llm.LLMClient(base) {
		t.Error("zero duration should not wrap")
	}
}
