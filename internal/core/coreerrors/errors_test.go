package coreerrors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/prisma-engine/internal/core/coreerrors"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantKind  coreerrors.Kind
		wantCause error
	}{
		{
			name:      "context deadline exceeded",
			err:       context.DeadlineExceeded,
			wantCode:  coreerrors.CodeTimeout,
			wantKind:  coreerrors.KindConnector,
			wantCause: coreerrors.ErrTimeout,
		},
		{
			name:      "context canceled",
			err:       context.Canceled,
			wantCode:  coreerrors.CodeConnectionClosed,
			wantKind:  coreerrors.KindConnector,
			wantCause: coreerrors.ErrCanceled,
		},
		{
			name:      "connection error",
			err:       errors.New("dial tcp 127.0.0.1:5432: connection refused"),
			wantCode:  coreerrors.CodeConnectionFailed,
			wantKind:  coreerrors.KindConnector,
			wantCause: coreerrors.ErrConnectionFailed,
		},
		{
			name:      "unique constraint",
			err:       errors.New("UNIQUE constraint failed: User.email"),
			wantCode:  coreerrors.CodeUniqueViolation,
			wantKind:  coreerrors.KindExecution,
			wantCause: coreerrors.ErrUniqueConstraint,
		},
		{
			name:      "foreign key constraint",
			err:       errors.New("FOREIGN KEY constraint failed"),
			wantCode:  coreerrors.CodeForeignKey,
			wantKind:  coreerrors.KindExecution,
			wantCause: coreerrors.ErrForeignKeyConstraint,
		},
		{
			name:      "sqlite busy",
			err:       errors.New("database is locked"),
			wantCode:  coreerrors.CodeWriteConflict,
			wantKind:  coreerrors.KindExecution,
			wantCause: coreerrors.ErrWriteConflict,
		},
		{
			name:     "unknown driver error",
			err:      errors.New("syntax error near FROM"),
			wantKind: coreerrors.KindExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := coreerrors.ClassifyError(tt.err)

			e, ok := coreerrors.As(result)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantKind, e.Kind)
			assert.ErrorIs(t, result, tt.err)
			if tt.wantCause != nil {
				assert.ErrorIs(t, result, tt.wantCause)
			}
		})
	}

	assert.NoError(t, coreerrors.ClassifyError(nil))
}

func TestClassifyErrorKeepsClassified(t *testing.T) {
	orig := coreerrors.Validationf("bad")
	assert.Same(t, orig, coreerrors.ClassifyError(orig))
}

func TestErrorBuilders(t *testing.T) {
	t.Run("WithCause marks connection failures retryable", func(t *testing.T) {
		err := coreerrors.Connectorf(coreerrors.CodeConnectionFailed, "connection failed").
			WithCause(coreerrors.ErrConnectionFailed)

		assert.Equal(t, coreerrors.ErrConnectionFailed, err.Cause)
		assert.True(t, err.Retryable)
	})

	t.Run("WithModel and WithField", func(t *testing.T) {
		err := coreerrors.Validationf("unknown field").WithModel("User").WithField("email")
		assert.Equal(t, "User", err.Model)
		assert.Equal(t, "email", err.Field)
	})

	t.Run("WithMeta", func(t *testing.T) {
		err := coreerrors.Executionf(coreerrors.CodeRecordNotFound, "missing").WithMeta("cause", "Record to update not found.")
		assert.Equal(t, "Record to update not found.", err.Meta["cause"])
	})

	t.Run("Error formats code and message", func(t *testing.T) {
		err := coreerrors.Executionf(coreerrors.CodeRecordNotFound, "Record not found")
		assert.Equal(t, "[P2025] Record not found", err.Error())
	})
}

func TestKindPredicates(t *testing.T) {
	wrapped := fmt.Errorf("build: %w", coreerrors.Validationf("nope"))
	assert.True(t, coreerrors.IsValidation(wrapped))
	assert.False(t, coreerrors.IsExecution(wrapped))
	assert.False(t, coreerrors.IsConnector(wrapped))

	assert.True(t, coreerrors.IsConnector(fmt.Errorf("step: %w", context.Canceled)))
	assert.True(t, coreerrors.IsExecution(coreerrors.Executionf(coreerrors.CodeRecordNotFound, "x")))
}
