package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "kind and message only",
			err:  &Error{Kind: KindConfiguration, Message: "no executors registered"},
			want: "CONFIGURATION: no executors registered",
		},
		{
			name: "document only",
			err:  &Error{Kind: KindStore, Message: "update document", DocumentID: "d1", Err: errors.New("disk full")},
			want: "STORE: update document (document=d1): disk full",
		},
		{
			name: "script",
			err: &Error{
				Kind: KindExecution, Message: "script failed to execute",
				DocumentID: "d1", ScriptID: "s2", Err: ErrScriptFailed,
			},
			want: "EXECUTION: script failed to execute (document=d1, script=s2): script failed to execute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Helpers(t *testing.T) {
	execErr := fmt.Errorf("run: %w", &Error{Kind: KindExecution, Err: ErrScriptFailed})
	assert.True(t, IsExecutionError(execErr), "wrapping should be transparent")
	assert.False(t, IsResolutionError(execErr))
	assert.False(t, IsConfigurationError(execErr))
	assert.True(t, errors.Is(execErr, ErrScriptFailed))

	resErr := &Error{Kind: KindResolution, Err: ErrExecutorNotFound}
	assert.True(t, IsResolutionError(resErr))
	assert.False(t, IsExecutionError(resErr))

	// A configuration error caused by an unknown executor is both.
	cfgErr := &Error{Kind: KindConfiguration, Err: fmt.Errorf("%w: %q", ErrExecutorNotFound, "x")}
	assert.True(t, IsConfigurationError(cfgErr))
	assert.True(t, IsResolutionError(cfgErr))

	assert.True(t, IsStoreError(storeError("add script", "d", "s", errors.New("locked"))))
	assert.False(t, IsStoreError(errors.New("plain")))
	assert.False(t, IsStoreError(nil))
}
