package errs

import (
	"errors"
	"testing"
)

func TestUnavailableKeepsCauseAndKind(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := Unavailable(cause, "query stock")

	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("errors.Is(err, ErrDataUnavailable) = false, err=%v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, err=%v", err)
	}
	if Kind(err) != ErrDataUnavailable {
		t.Fatalf("Kind() = %v", Kind(err))
	}
}

func TestUnavailableDoesNotRelabelKnownKinds(t *testing.T) {
	err := Unavailable(Invalid("quantity must be positive"), "check fulfillment")

	if errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("invalid request relabelled as unavailable: %v", err)
	}
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("Kind lost: %v", err)
	}
}

func TestErrorChainStringsWalksJoinedErrors(t *testing.T) {
	err := Wrap(errors.Join(errors.New("a"), errors.New("b")), "outer")

	chain := ErrorChainStrings(err)
	if len(chain) != 4 {
		t.Fatalf("ErrorChainStrings() = %#v", chain)
	}
	if chain[2] != "a" || chain[3] != "b" {
		t.Fatalf("ErrorChainStrings() = %#v", chain)
	}
}
