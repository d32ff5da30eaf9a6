package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBenchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BenchError
		expected string
	}{
		{
			name: "error without cause",
			err: &BenchError{
				Code:    CodeSyntax,
				Message: "invalid SQL",
			},
			expected: "SYNTAX_ERROR: invalid SQL",
		},
		{
			name: "error with cause",
			err: &BenchError{
				Code:    CodeExecution,
				Message: "statement failed",
				Cause:   fmt.Errorf("underlying error"),
			},
			expected: "EXECUTION_FAILED: statement failed (caused by: underlying error)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestBenchError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := Wrap(cause, CodeTimeout, "deadline hit")

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, &BenchError{Code: CodeTimeout}))
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeExecution, "ignored"))
	assert.Nil(t, Wrapf(nil, CodeExecution, "ignored %d", 1))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(ErrQueryTimeout))
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(Wrap(fmt.Errorf("slow"), CodeTimeout, "query timed out")))
	assert.False(t, IsTimeout(ErrExecutionFailed))
	assert.False(t, IsTimeout(fmt.Errorf("plain error")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeCorrectness, GetCode(ErrResultsMismatch))
	assert.Equal(t, CodeUnknown, GetCode(fmt.Errorf("plain error")))

	wrapped := fmt.Errorf("outer: %w", New(CodeSyntax, "bad token"))
	assert.Equal(t, CodeSyntax, GetCode(wrapped))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, ""},
		{"coded error keeps its code", ErrResultsMismatch, CodeCorrectness},
		{"context deadline", context.DeadlineExceeded, CodeTimeout},
		{"driver timeout text", fmt.Errorf("read tcp: i/o timeout"), CodeTimeout},
		{"driver syntax text", fmt.Errorf("syntax error at or near SELCT"), CodeSyntax},
		{"driver connection text", fmt.Errorf("connection refused"), CodeConnection},
		{"anything else", fmt.Errorf("tuple decode blew up"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.err))
		})
	}
}
