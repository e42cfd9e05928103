package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_MatchesSentinel(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("create: %w", Validation("title", "is required"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation match, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("errors.As failed: %v", err)
	}
	if got := ve.Error(); got != "validation: title: is required" {
		t.Fatalf("message=%q", got)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("validation error must not match ErrNotFound")
	}
}

func TestAuthError_CollapsesToUnauthorized(t *testing.T) {
	t.Parallel()

	for _, r := range []AuthReason{
		ReasonNoToken, ReasonMalformed, ReasonBadSignature, ReasonExpired,
		ReasonUnknownIdentity, ReasonStaleToken, ReasonBadCredentials,
	} {
		err := fmt.Errorf("gate: %w", Unauthorized(r))
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: want ErrUnauthorized", r)
		}
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Reason != r {
			t.Fatalf("%s: reason lost", r)
		}
	}
}
