package apperr

// ValidationError reports malformed caller input.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func NewValidationWrap(msg string, err error) *ValidationError {
	return &ValidationError{Message: msg, Err: err}
}

// ConflictError reports a data-integrity collision, e.g. a sha256 already
// bound to a different article. It must never be silently merged.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflict(msg string) *ConflictError {
	return &ConflictError{Message: msg}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found: " + e.Key
}

func NewNotFound(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

// PrereqError reports a missing prerequisite (no API key, no image, no body
// text). It short-circuits one operation without crashing a batch.
type PrereqError struct {
	Message string
}

func (e *PrereqError) Error() string {
	return e.Message
}

func NewPrereq(msg string) *PrereqError {
	return &PrereqError{Message: msg}
}

// UpstreamError reports an unexpected response shape from an external API.
// Snippet carries a truncated copy of the offending payload for diagnosis.
type UpstreamError struct {
	Message string
	Snippet string
}

func (e *UpstreamError) Error() string {
	if e.Snippet != "" {
		return e.Message + ": " + e.Snippet
	}
	return e.Message
}

const upstreamSnippetLimit = 500

// NewUpstream builds an UpstreamError, truncating payload to a bounded
// snippet.
func NewUpstream(msg string, payload []byte) *UpstreamError {
	s := string(payload)
	if len(s) > upstreamSnippetLimit {
		s = s[:upstreamSnippetLimit]
	}
	return &UpstreamError{Message: msg, Snippet: s}
}
