package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestSyncError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *SyncError
		want string
	}{
		{
			name: "without cause",
			err:  NewError(CodeNetwork, "probe failed", nil),
			want: "[NETWORK] probe failed",
		},
		{
			name: "with cause",
			err:  NewError(CodeStorage, "enqueue failed", errors.New("disk full")),
			want: "[STORAGE] enqueue failed: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyncError_Unwrap(t *testing.T) {
	cause := ErrRemoteFailure
	err := NewError(CodeRemote, "create failed", cause)

	if !errors.Is(err, ErrRemoteFailure) {
		t.Error("errors.Is should match the wrapped cause")
	}

	var se *SyncError
	if !errors.As(error(err), &se) {
		t.Error("errors.As should find SyncError in chain")
	}
}

func TestWithContext(t *testing.T) {
	err := NewError(CodeDrain, "replay failed", nil)
	err = err.WithContext("action_type", "createProject")
	err = err.WithContext("retries", 3)

	if err.Context["action_type"] != "createProject" {
		t.Errorf("Context[action_type] = %v, want createProject", err.Context["action_type"])
	}
	if err.Context["retries"] != 3 {
		t.Errorf("Context[retries] = %v, want 3", err.Context["retries"])
	}
}

func TestWithContext_NilMap(t *testing.T) {
	err := &SyncError{Code: CodeValidation, Message: "missing key"}
	err = err.WithContext("key", "projects")
	if err.Context["key"] != "projects" {
		t.Error("WithContext should initialize a nil context map")
	}
}

func TestSentinels_Distinct(t *testing.T) {
	sentinels := []error{
		ErrNetworkUnavailable,
		ErrNoCachedData,
		ErrRemoteFailure,
		ErrQueuedForSync,
		ErrReplayExhausted,
		ErrUnknownActionType,
		ErrLeaseHeld,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v should not match %v", a, b)
			}
		}
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad request")

	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}

	wrapped := Permanent(base)
	if !IsPermanent(wrapped) {
		t.Error("IsPermanent() = false for a permanent error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("Permanent() must preserve the error chain")
	}
	if IsPermanent(base) {
		t.Error("IsPermanent() = true for an unmarked error")
	}

	// The marker survives further wrapping.
	outer := NewError(CodeDrain, "replay failed", wrapped)
	if !IsPermanent(outer) {
		t.Error("IsPermanent() should see through wrapping")
	}
}

func TestErrQueuedForSync_Message(t *testing.T) {
	// The sentinel message is user-facing via the CLI; keep it stable.
	if !strings.Contains(ErrQueuedForSync.Error(), "queued") {
		t.Errorf("ErrQueuedForSync message = %q", ErrQueuedForSync.Error())
	}
}
