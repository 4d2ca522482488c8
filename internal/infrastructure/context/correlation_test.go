package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "present",
			ctx:      WithCorrelationID(context.Background(), "run-42"),
			expected: "run-42",
		},
		{
			name:     "absent",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "wrong type",
			ctx:      context.WithValue(context.Background(), CorrelationIDKey, 42),
			expected: "",
		},
		{
			name: "derived context",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(WithCorrelationID(context.Background(), "parent"))
				cancel()
				return ctx
			}(),
			expected: "parent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCorrelationID(tt.ctx); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a UUID, got %q", id)
	}
	if GetCorrelationID(ctx) != id {
		t.Error("expected the new ID to be stored in the context")
	}

	ctx2, id2 := EnsureCorrelationID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Errorf("expected the existing ID to be kept, got %q", id2)
	}
}
