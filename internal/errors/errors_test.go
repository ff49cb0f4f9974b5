package errors_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"graphetl/internal/errors"
)

func TestIsMatchesCodeThroughWrapping(t *testing.T) {
	t.Parallel()

	base := errors.Newf(errors.ErrNullIdentifier, "id has %d nulls", 2)
	wrapped := errors.Wrapf(errors.WithMessage(base, "person.csv"), "load %s", "Person")

	assert.True(t, errors.Is(wrapped, errors.ErrNullIdentifier))
	assert.False(t, errors.Is(wrapped, errors.ErrTypeMismatch))
	assert.Equal(t, errors.ErrNullIdentifier, errors.CodeOf(wrapped))
	assert.Contains(t, wrapped.Error(), "id has 2 nulls")
	assert.Contains(t, wrapped.Error(), "load Person")
}

func TestIsDataIntegrity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"null identifier", errors.New(errors.ErrNullIdentifier, "x"), true},
		{"missing identifier", errors.New(errors.ErrMissingIdentifier, "x"), true},
		{"type mismatch", errors.New(errors.ErrTypeMismatch, "x"), true},
		{"malformed row", errors.New(errors.ErrMalformedRow, "x"), true},
		{"schema conflict", errors.New(errors.ErrSchemaConflict, "x"), true},
		{"unresolved endpoint", errors.New(errors.ErrUnresolvedEndpoint, "x"), false},
		{"structural", errors.New(errors.ErrNoInputFiles, "x"), false},
		{"uncoded", io.EOF, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, errors.IsDataIntegrity(tt.err))
		})
	}
}

func TestCodeOfUncoded(t *testing.T) {
	t.Parallel()
	assert.Equal(t, errors.ErrUncoded, errors.CodeOf(errors.Wrap(io.EOF, "read")))
}
