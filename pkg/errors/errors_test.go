package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewError tests the basic creation of errors.
func TestNewError(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "Busy",
			code:    Busy,
			message: "generation already in progress",
		},
		{
			name:    "InfeasibleCandidate",
			code:    InfeasibleCandidate,
			message: "candidate violates structural constraints",
		},
		{
			name:    "EmptyArchive",
			code:    EmptyArchive,
			message: "no feasible members in selected cell",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			customErr, ok := err.(*Error)

			assert.True(t, ok, "should be a custom *Error")
			assert.Equal(t, tt.code, customErr.Code())
			assert.Equal(t, tt.message, customErr.Error())
			assert.Nil(t, customErr.Unwrap())
		})
	}
}

// TestWrapError tests error wrapping functionality.
func TestWrapError(t *testing.T) {
	originalErr := stderrors.New("expander blew up")

	err := Wrap(originalErr, EvaluationFailed, "evaluation failed")
	require.NotNil(t, err)

	customErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, EvaluationFailed, customErr.Code())
	assert.Equal(t, "evaluation failed: expander blew up", customErr.Error())
	assert.Equal(t, originalErr, customErr.Unwrap())

	assert.Nil(t, Wrap(nil, EvaluationFailed, "ignored"))
}

func TestWithFields(t *testing.T) {
	err := New(Busy, "generation already in progress")
	err = WithFields(err, Fields{"operation": "generate"})

	customErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, Busy, customErr.Code())
	assert.Equal(t, "generate", customErr.Fields()["operation"])
	assert.Contains(t, customErr.Error(), "operation=generate")

	// Fields on a plain error produce an Unknown-coded wrapper.
	plain := WithFields(stderrors.New("plain"), Fields{"cell": "(2,3)"})
	plainErr, ok := plain.(*Error)
	require.True(t, ok)
	assert.Equal(t, Unknown, plainErr.Code())
}

func TestErrorMatching(t *testing.T) {
	err := WithFields(New(Busy, "busy"), Fields{"operation": "reset"})

	assert.True(t, stderrors.Is(err, New(Busy, "anything")))
	assert.False(t, stderrors.Is(err, New(EmptyArchive, "anything")))

	var target *Error
	require.True(t, stderrors.As(err, &target))
	assert.Equal(t, Busy, target.Code())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Busy, CodeOf(New(Busy, "busy")))
	assert.Equal(t, Unknown, CodeOf(stderrors.New("plain")))
	assert.True(t, IsBusy(New(Busy, "busy")))
	assert.False(t, IsBusy(New(EvaluationFailed, "nope")))
}
