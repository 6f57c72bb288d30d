package autherr

import (
	"time"

	"github.com/google/uuid"
)

// Response is the failure envelope returned on every 401. It is assembled at
// the failure site with a fresh trace id and never persisted.
type Response struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   uuid.UUID `json:"traceId"`
}

func NewResponse(code Code, message string) Response {
	return Response{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		TraceID:   uuid.New(),
	}
}

func FromCode(code Code) Response {
	return NewResponse(code, code.Description())
}

// Error carries a Code through the service layers so the boundary can
// convert it exactly once into the wire envelope.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Of(code Code) *Error {
	return &Error{Code: code, Message: code.Description()}
}
