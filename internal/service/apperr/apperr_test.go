package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name   string
		err    error
		kind   Kind
		client bool
	}{
		{name: "missing key", err: ErrMissingIdempotencyKey, kind: KindInvalid, client: true},
		{name: "conflict", err: ErrIdempotencyConflict, kind: KindConflict, client: true},
		{name: "not found wrapped", err: fmt.Errorf("get: %w", ErrOrderNotFound), kind: KindNotFound, client: true},
		{name: "invalid", err: Invalid("bad body", cause), kind: KindInvalid, client: true},
		{name: "internal", err: Internal(cause), kind: KindInternal},
		{name: "simulated", err: ErrSimulatedFailure, kind: KindInternal},
		{name: "unclassified", err: cause, kind: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
			assert.Equal(t, tt.client, IsClient(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal error: db down", err.Error())
	assert.False(t, IsClient(nil))
}
