package services

import "errors"

var (
	ErrIdentityUnavailable = errors.New("identity unavailable")
	ErrStoreUnavailable    = errors.New("profile store unavailable")
	ErrDocumentNotFound    = errors.New("profile document not found")
	ErrNetworkFailure      = errors.New("network failure")
	ErrUpstreamNon2xx      = errors.New("upstream returned non-2xx status")
	ErrUnparseableResponse = errors.New("unparseable upstream response")
	ErrInvalidUpload       = errors.New("invalid upload")
	ErrNoPendingImage      = errors.New("no pending report image")
	ErrRequestInFlight     = errors.New("request already in flight")
)

// NoticeError pairs an error with the message shown to the user.
type NoticeError struct {
	Err    error
	Notice string
}

func (e *NoticeError) Error() string { return e.Err.Error() }

func (e *NoticeError) Unwrap() error { return e.Err }

func withNotice(err error, notice string) error {
	return &NoticeError{Err: err, Notice: notice}
}

// Notice returns the user-facing message attached to err, if any.
func Notice(err error) string {
	var ne *NoticeError
	if errors.As(err, &ne) {
		return ne.Notice
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Notice
	}
	return ""
}

type ValidationError struct {
	Fields map[string]string
	Notice string
}

func (e *ValidationError) Error() string { return "Validation error" }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }
