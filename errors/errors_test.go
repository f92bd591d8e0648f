package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/davidvella/chemio/errors"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Class
	}{
		{name: "nil", err: nil, want: errors.ClassUnknown},
		{name: "plain", err: stderrors.New("boom"), want: errors.ClassUnknown},
		{name: "not found", err: errors.ErrNotFound, want: errors.ClassNotFound},
		{name: "index", err: errors.ErrIndexOutOfRange, want: errors.ClassContract},
		{name: "position", err: errors.ErrInvalidPosition, want: errors.ClassContract},
		{name: "decode", err: fmt.Errorf("line 3: %w", errors.ErrDecode), want: errors.ClassDecode},
		{name: "io", err: errors.ErrIO, want: errors.ClassIO},
		{name: "closed", err: errors.ErrClosed, want: errors.ClassIO},
		{name: "cancelled", err: errors.ErrCancelled, want: errors.ClassCancelled},
		{name: "context", err: context.Canceled, want: errors.ClassCancelled},
		{
			name: "explicit class wins",
			err:  errors.WrapIO(errors.ErrDecode, "Reader", "Read", "read frame"),
			want: errors.ClassIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Classify(tt.err))
		})
	}
}

func TestWrapPreservesClassification(t *testing.T) {
	base := errors.WrapDecode(stderrors.New("bad atom"), "SMILES", "Decode", "parse line")
	wrapped := errors.Wrap(fmt.Errorf("record 7: %w", base), "Scanner", "claim", "read record")

	assert.True(t, errors.IsDecode(wrapped))
	assert.False(t, errors.IsIO(wrapped))
	assert.Equal(t, "Scanner.claim: read record failed: record 7: SMILES.Decode: parse line failed: bad atom",
		wrapped.Error())

	var ce *errors.ClassifiedError
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "Scanner", ce.Component)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, errors.Wrap(nil, "a", "b", "c"))
	assert.NoError(t, errors.WrapIO(nil, "a", "b", "c"))
}

func TestClassString(t *testing.T) {
	assert.Equal(t, "decode", errors.ClassDecode.String())
	assert.Equal(t, "unknown", errors.Class(42).String())
}
