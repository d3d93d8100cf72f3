package testutil

import (
	"errors"
	"strings"
	"testing"
)

// RequireNoError fails the test immediately if err is non-nil.
func RequireNoError(t testing.TB, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// RequireErrorIs fails unless errors.Is(err, target).
func RequireErrorIs(t testing.TB, err, target error, msg string) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("%s: expected %v, got %v", msg, target, err)
	}
}

// RequireEqual fails the test immediately if expected != actual.
func RequireEqual[T comparable](t testing.TB, expected, actual T, msg string) {
	t.Helper()
	if expected != actual {
		t.Fatalf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// RequireLen fails if len(s) != n.
func RequireLen[T ~[]E, E any](t testing.TB, s T, n int, msg string) {
	t.Helper()
	if len(s) != n {
		t.Fatalf("%s: expected len=%d, got %d", msg, n, len(s))
	}
}

// RequireContains fails unless s contains substr.
func RequireContains(t testing.TB, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%s: %q does not contain %q", msg, s, substr)
	}
}
