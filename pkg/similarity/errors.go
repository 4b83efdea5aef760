package similarity

import (
	"errors"
	"net/http"
)

// Sentinel errors returned by IndexClient implementations.
var (
	// ErrIndexNotFound means no built index matches the requested identity.
	ErrIndexNotFound = errors.New("index not found")
	// ErrItemNotFound means a submission exists but is not in the loaded index yet.
	ErrItemNotFound = errors.New("item not found in index")
	// ErrNoDataFound means no submission exists for the recording at all.
	ErrNoDataFound = errors.New("no data found")
)

// User-facing messages.
const (
	MsgMissingRecordingIDs = "Missing recording_ids parameter"
	MsgNotTwoRecordings    = "Does not contain 2 recordings in the request"
	MsgUnknownMetric       = "An index with the specified metric does not exist."
	MsgIndexNotFound       = "Index does not exist with specified parameters."
	MsgNotInIndex          = "No submission for this recording in the index."
	msgTooManyRecordings   = "More than %d recordings not allowed per request"
)

// APIError is a request-level failure carrying an HTTP status and a stable
// message safe to show to the caller.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// BadRequest returns a 400 APIError.
func BadRequest(msg string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: msg}
}

// NotFound returns a 404 APIError.
func NotFound(msg string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: msg}
}
