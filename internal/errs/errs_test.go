package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"pgregory.net/rapid"
)

var allCodes = []Code{
	InvalidArgument,
	Unauthenticated,
	PermissionDenied,
	Restricted,
	NotFound,
	Unavailable,
	Internal,
}

func testCodeOf_RoundtripForTypedErrors(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")

	err := New(code, message)
	if got := CodeOf(err); got != code {
		t.Fatalf("CodeOf(New) mismatch: got=%q want=%q", got, code)
	}
	if got := MessageOf(err); got != message {
		t.Fatalf("MessageOf(New) mismatch: got=%q want=%q", got, message)
	}
}

func TestCodeOf_RoundtripForTypedErrors(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOf_RoundtripForTypedErrors)
}

func testCodeOf_SurvivesWrapping(t *rapid.T) {
	code := rapid.SampledFrom(allCodes).Draw(t, "code")
	message := rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "message")
	cause := errors.New(rapid.StringMatching(`[a-zA-Z0-9 _:\-]{1,80}`).Draw(t, "cause"))

	wrapped := fmt.Errorf("outer: %w", Wrap(code, message, cause))

	if got := CodeOf(wrapped); got != code {
		t.Fatalf("CodeOf(wrapped) mismatch: got=%q want=%q", got, code)
	}
	if !Is(wrapped, code) {
		t.Fatalf("Is(wrapped, %q) = false", code)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatal("cause lost through Wrap")
	}
}

func TestCodeOf_SurvivesWrapping(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCodeOf_SurvivesWrapping)
}

func TestUserMessage_ExtractionOrder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message wins", &Error{Code: Internal, Message: "note title too long", Err: errors.New("dial tcp")}, "note title too long"},
		{"transport text when no server message", Transport(errors.New("dial tcp 127.0.0.1:1: connection refused")), "dial tcp 127.0.0.1:1: connection refused"},
		{"plain error text", errors.New("context deadline exceeded"), "context deadline exceeded"},
		{"blank message falls back", &Error{Code: Internal, Message: "   "}, FallbackMessage},
		{"nil falls back", nil, FallbackMessage},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Errorf("%s: UserMessage = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFromResponse_RestrictedNeedsForbiddenAndWord(t *testing.T) {
	t.Parallel()

	if got := CodeOf(FromResponse(http.StatusForbidden, "Account RESTRICTED")); got != Restricted {
		t.Fatalf("403 restricted: got %q", got)
	}
	if got := CodeOf(FromResponse(http.StatusForbidden, "Forbidden")); got != PermissionDenied {
		t.Fatalf("403 plain: got %q", got)
	}
	if got := CodeOf(FromResponse(http.StatusBadRequest, "restricted")); got != InvalidArgument {
		t.Fatalf("400 restricted: got %q", got)
	}
	if got := StatusOf(FromResponse(http.StatusNotFound, "")); got != http.StatusNotFound {
		t.Fatalf("StatusOf: got %d", got)
	}
	if got := UserMessage(FromResponse(http.StatusBadGateway, "")); got != "request failed with status code 502" {
		t.Fatalf("empty body message: got %q", got)
	}
}

func testStatusMapping_RoundTrips(t *rapid.T) {
	code := rapid.SampledFrom([]Code{InvalidArgument, Unauthenticated, PermissionDenied, NotFound, Unavailable, Internal}).Draw(t, "code")
	if got := FromStatus(HTTPStatus(code)); got != code {
		t.Fatalf("FromStatus(HTTPStatus(%q)) = %q", code, got)
	}
}

func TestStatusMapping_RoundTrips(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testStatusMapping_RoundTrips)
}
