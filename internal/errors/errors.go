// Package errors provides the recorder's error taxonomy.
// Codes map onto gRPC status codes so retry classification and logging treat
// local failures and remote API failures the same way.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Code identifies a failure class.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	Unavailable
	Timeout
	Cancelled
	RateLimited

	// Startup-fatal
	ConfigMissing
	ConfigInvalid
	DeviceNotFound
	AudioInitFailed

	// Per-chunk recoverable
	CaptureFailed
	PersistFailed
	TranscriptionFailed
	TranscriptionEmpty

	// Session-terminal but partial
	SummarizationFailed
	NothingToSummarize
)

var codeNames = map[Code]string{
	Unknown:             "UNKNOWN",
	Internal:            "INTERNAL",
	InvalidArgument:     "INVALID_ARGUMENT",
	Unavailable:         "UNAVAILABLE",
	Timeout:             "TIMEOUT",
	Cancelled:           "CANCELLED",
	RateLimited:         "RATE_LIMITED",
	ConfigMissing:       "CONFIG_MISSING",
	ConfigInvalid:       "CONFIG_INVALID",
	DeviceNotFound:      "DEVICE_NOT_FOUND",
	AudioInitFailed:     "AUDIO_INIT_FAILED",
	CaptureFailed:       "CAPTURE_FAILED",
	PersistFailed:       "PERSIST_FAILED",
	TranscriptionFailed: "TRANSCRIPTION_FAILED",
	TranscriptionEmpty:  "TRANSCRIPTION_EMPTY",
	SummarizationFailed: "SUMMARIZATION_FAILED",
	NothingToSummarize:  "NOTHING_TO_SUMMARIZE",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// Kind groups codes by how far a failure propagates.
type Kind int

const (
	KindUnknown Kind = iota
	KindStartupFatal
	KindChunkRecoverable
	KindSessionPartial
	KindInterrupt
)

func (k Kind) String() string {
	return [...]string{"unknown", "startup-fatal", "chunk-recoverable", "session-partial", "interrupt"}[k]
}

// grpcCodeMap maps error codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:             codes.Unknown,
	Internal:            codes.Internal,
	InvalidArgument:     codes.InvalidArgument,
	Unavailable:         codes.Unavailable,
	Timeout:             codes.DeadlineExceeded,
	Cancelled:           codes.Canceled,
	RateLimited:         codes.ResourceExhausted,
	ConfigMissing:       codes.FailedPrecondition,
	ConfigInvalid:       codes.InvalidArgument,
	DeviceNotFound:      codes.NotFound,
	AudioInitFailed:     codes.Unavailable,
	CaptureFailed:       codes.Internal,
	PersistFailed:       codes.Internal,
	TranscriptionFailed: codes.Internal,
	TranscriptionEmpty:  codes.InvalidArgument,
	SummarizationFailed: codes.Internal,
	NothingToSummarize:  codes.FailedPrecondition,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// Kind reports how far this error is allowed to propagate.
func (e *AppError) Kind() Kind {
	switch e.Code {
	case ConfigMissing, ConfigInvalid, DeviceNotFound, AudioInitFailed:
		return KindStartupFatal
	case CaptureFailed, PersistFailed, TranscriptionFailed, TranscriptionEmpty:
		return KindChunkRecoverable
	case SummarizationFailed, NothingToSummarize:
		return KindSessionPartial
	case Cancelled:
		return KindInterrupt
	default:
		return KindUnknown
	}
}

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a status carrying the metadata as a Struct detail.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	if len(e.Metadata) == 0 {
		return st
	}
	fields := make(map[string]any, len(e.Metadata)+1)
	fields["code"] = e.Code.String()
	for k, v := range e.Metadata {
		fields[k] = v
	}
	detail, err := structpb.NewStruct(fields)
	if err != nil {
		return st
	}
	if withDetail, err := st.WithDetails(detail); err == nil {
		return withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode checks if an error chain carries a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// KindOf classifies any error; non-AppErrors are KindUnknown.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind()
	}
	return KindUnknown
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case Unavailable, Timeout, RateLimited:
		return true
	default:
		return false
	}
}
