package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: badge", ErrNotFound), http.StatusNotFound},
		{"invalid input", fmt.Errorf("%w: negative amount", ErrInvalidInput), http.StatusBadRequest},
		{"conflict", ErrConflict, http.StatusConflict},
		{"storage unavailable", fmt.Errorf("%w: 4 attempts", ErrStorageUnavailable), http.StatusServiceUnavailable},
		{"transient", ErrStorageTransient, http.StatusServiceUnavailable},
		{"app error code wins", New(http.StatusTeapot, "teapot", ErrInvalidInput), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapErrorToStatus(tt.err); got != tt.want {
				t.Errorf("MapErrorToStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsKnownAndRetryable(t *testing.T) {
	transient := fmt.Errorf("%w: deadlock", ErrStorageTransient)
	if !IsKnown(transient) || !IsRetryable(transient) {
		t.Errorf("transient error should be known and retryable")
	}
	if IsKnown(errors.New("driver exploded")) {
		t.Errorf("plain error should not be known")
	}
	if IsRetryable(ErrStorageUnavailable) {
		t.Errorf("unavailable must not be retryable")
	}
}
