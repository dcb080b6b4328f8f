package inference

import (
	"context"
	stderrors "errors"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

// Transcriber turns one audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Summarizer sends one prompt to a language model and returns its reply.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// classify maps a provider error onto the recorder's codes so retry and
// logging can reason about it. fallback is used for non-transport failures.
func classify(ctx context.Context, err error, fallback apperr.Code, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}

	code := fallback
	switch {
	case stderrors.Is(ctx.Err(), context.Canceled) || stderrors.Is(err, context.Canceled):
		code = apperr.Cancelled
	case stderrors.Is(err, context.DeadlineExceeded):
		code = apperr.Timeout
	case isFileErr(err):
		// Local chunk file errors keep the fallback code.
	default:
		switch s := httpStatus(err); {
		case s == http.StatusTooManyRequests:
			code = apperr.RateLimited
		case s == http.StatusRequestTimeout || s >= http.StatusInternalServerError:
			code = apperr.Unavailable
		case s == 0 && isNetErr(err):
			code = apperr.Unavailable
		}
	}

	wrapped := apperr.Wrap(err, code, op)
	if s := httpStatus(err); s != 0 {
		wrapped = wrapped.WithMetadata("http_status", strconv.Itoa(s))
	}
	return wrapped
}

func httpStatus(err error) int {
	var oaiErr *openai.APIError
	if stderrors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var gErr genai.APIError
	if stderrors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}

// isFileErr reports a local filesystem failure. syscall.Errno satisfies
// net.Error, so this must be checked before isNetErr.
func isFileErr(err error) bool {
	var pathErr *fs.PathError
	return stderrors.As(err, &pathErr) ||
		stderrors.Is(err, fs.ErrNotExist) ||
		stderrors.Is(err, fs.ErrPermission)
}

// isNetErr reports a transport failure reaching the provider.
func isNetErr(err error) bool {
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
		urlErr *url.Error
	)
	return stderrors.As(err, &opErr) ||
		stderrors.As(err, &dnsErr) ||
		stderrors.As(err, &urlErr)
}
