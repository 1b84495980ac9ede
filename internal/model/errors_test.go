package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAuthError_ErrorFormat(t *testing.T) {
	err := NewInvalidCredentialsError()
	want := "[invalid_credentials] Invalid authentication credentials"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAsAuthError_Unwraps(t *testing.T) {
	wrapped := fmt.Errorf("resolving token: %w", NewInvalidAuthMethodError())

	authErr, ok := AsAuthError(wrapped)
	if !ok {
		t.Fatal("expected AuthError to be found in chain")
	}
	if authErr.Code != ErrCodeInvalidAuthMethod {
		t.Errorf("Code = %q, want %q", authErr.Code, ErrCodeInvalidAuthMethod)
	}
}

func TestAsAuthError_NonAuthError(t *testing.T) {
	if _, ok := AsAuthError(errors.New("connection refused")); ok {
		t.Error("plain error should not be an AuthError")
	}
	if _, ok := AsAuthError(nil); ok {
		t.Error("nil should not be an AuthError")
	}
}
