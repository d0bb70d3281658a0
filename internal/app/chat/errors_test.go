package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_Classified(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ValidationError("bad name"), KindValidation},
		{NotFoundError("no group"), KindNotFound},
		{ForbiddenError("not an admin"), KindForbidden},
		{ConflictError("already a member"), KindConflict},
		{UpstreamError("storage failed", errors.New("boom")), KindUpstream},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", ForbiddenError("not an admin"))
	if got := KindOf(err); got != KindForbidden {
		t.Errorf("KindOf wrapped = %q, want %q", got, KindForbidden)
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if got := KindOf(errors.New("driver exploded")); got != KindUpstream {
		t.Errorf("KindOf = %q, want %q", got, KindUpstream)
	}
}

func TestMessageOf_NeverLeaksInternals(t *testing.T) {
	inner := errors.New("connection refused 10.0.0.7:27017")
	got := MessageOf(UpstreamError("could not send message", inner))
	if got != "could not send message" {
		t.Errorf("MessageOf = %q", got)
	}

	if got := MessageOf(inner); got != "internal server error" {
		t.Errorf("MessageOf(unclassified) = %q", got)
	}
}
