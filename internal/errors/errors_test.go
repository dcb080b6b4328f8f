package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestAppErrorMessage(t *testing.T) {
	cause := stderrors.New("device busy")
	err := Wrap(cause, CaptureFailed, "read chunk").WithMetadata("seq", "3")

	msg := err.Error()
	for _, want := range []string{"[CAPTURE_FAILED]", "read chunk", "seq:3", "caused by: device busy"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		code Code
		want Kind
	}{
		{ConfigMissing, KindStartupFatal},
		{DeviceNotFound, KindStartupFatal},
		{CaptureFailed, KindChunkRecoverable},
		{TranscriptionEmpty, KindChunkRecoverable},
		{SummarizationFailed, KindSessionPartial},
		{NothingToSummarize, KindSessionPartial},
		{Cancelled, KindInterrupt},
		{Unavailable, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if got := New(tt.code, "x").Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("session: %w", New(SummarizationFailed, "api down"))
	if KindOf(err) != KindSessionPartial {
		t.Errorf("KindOf = %v, want session-partial", KindOf(err))
	}
	if KindOf(stderrors.New("plain")) != KindUnknown {
		t.Error("plain errors should be unknown")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(DeviceNotFound, "no blackhole"))
	if !IsCode(err, DeviceNotFound) {
		t.Error("IsCode should see through wrapping")
	}
	if IsCode(err, ConfigMissing) {
		t.Error("IsCode matched the wrong code")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(Unavailable, "x"), true},
		{New(Timeout, "x"), true},
		{New(RateLimited, "x"), true},
		{New(InvalidArgument, "x"), false},
		{New(ConfigMissing, "x"), false},
		{stderrors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestGRPCStatus(t *testing.T) {
	err := New(RateLimited, "slow down").WithMetadata("provider", "openai")

	st, ok := status.FromError(err)
	if !ok {
		t.Fatal("status.FromError should recognise AppError")
	}
	if st.Code() != codes.ResourceExhausted {
		t.Errorf("code = %v, want ResourceExhausted", st.Code())
	}

	details := st.Details()
	if len(details) != 1 {
		t.Fatalf("details = %d, want 1", len(details))
	}
	s, ok := details[0].(*structpb.Struct)
	if !ok {
		t.Fatalf("detail type = %T, want *structpb.Struct", details[0])
	}
	if got := s.Fields["provider"].GetStringValue(); got != "openai" {
		t.Errorf("provider = %q, want openai", got)
	}
	if got := s.Fields["code"].GetStringValue(); got != "RATE_LIMITED" {
		t.Errorf("code field = %q, want RATE_LIMITED", got)
	}
}

func TestGRPCStatusWrapped(t *testing.T) {
	err := fmt.Errorf("call: %w", New(Unavailable, "503"))
	if got := status.Code(err); got != codes.Unavailable {
		t.Errorf("status.Code = %v, want Unavailable", got)
	}
}

func TestCodeString(t *testing.T) {
	if Code(999).String() != "CODE(999)" {
		t.Errorf("unexpected string for unknown code: %s", Code(999).String())
	}
	if TranscriptionFailed.String() != "TRANSCRIPTION_FAILED" {
		t.Errorf("TranscriptionFailed.String() = %s", TranscriptionFailed.String())
	}
}
