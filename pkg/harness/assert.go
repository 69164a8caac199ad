package harness

import (
	"errors"
	"regexp"
	"testing"

	"veridata/gatekeeper/pkg/integrity"
)

// ExpectAccepted fails the test unless err is nil.
func ExpectAccepted(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("expected write to be accepted, got: %v", err)
	}
}

// ExpectViolation fails the test unless err is a *integrity.ViolationError
// whose primary error code matches codePattern (a regular expression).
// Returns the violation error for further inspection.
func ExpectViolation(t *testing.T, err error, codePattern string) *integrity.ViolationError {
	t.Helper()

	if err == nil {
		t.Fatalf("expected a business rule violation matching %q, got nil error", codePattern)
	}

	var verr *integrity.ViolationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a business rule violation, got %T: %v", err, err)
	}

	re, reErr := regexp.Compile(codePattern)
	if reErr != nil {
		t.Fatalf("invalid error-code pattern %q: %v", codePattern, reErr)
	}
	if !re.MatchString(verr.ErrorCode()) {
		t.Fatalf("expected primary error code matching %q, got %q (violations: %d)",
			codePattern, verr.ErrorCode(), len(verr.Violations))
	}

	return verr
}

// ExpectNoViolation fails the test if err is a *integrity.ViolationError.
// Other errors pass through unchanged so callers can assert on them.
func ExpectNoViolation(t *testing.T, err error) {
	t.Helper()

	var verr *integrity.ViolationError
	if errors.As(err, &verr) {
		t.Fatalf("expected no business rule violation, got %v", verr)
	}
}

// ExpectUnavailable fails the test unless err is a
// *integrity.UnavailableError, the fail-closed verdict for rules that
// could not be checked.
func ExpectUnavailable(t *testing.T, err error) *integrity.UnavailableError {
	t.Helper()

	if err == nil {
		t.Fatal("expected an evaluation-unavailable error, got nil")
	}

	var uerr *integrity.UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected an evaluation-unavailable error, got %T: %v", err, err)
	}
	return uerr
}
