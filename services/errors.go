package services

import (
	"errors"
	"net/http"
)

// Kind classifies domain errors so the HTTP boundary can pick a status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindSelfAction
	KindDuplicateVote
	KindUnknownReputationEvent
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindSelfAction:
		return "self_action_forbidden"
	case KindDuplicateVote:
		return "duplicate_vote"
	case KindUnknownReputationEvent:
		return "unknown_reputation_event"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind to a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden, KindSelfAction:
		return http.StatusForbidden
	case KindDuplicateVote:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error. Code is the 5-digit envelope code returned to clients.
type Error struct {
	Kind    Kind
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// HTTPStatus is the response status for e.
func (e *Error) HTTPStatus() int { return e.Kind.HTTPStatus() }

// ErrorCode is the envelope code for e.
func (e *Error) ErrorCode() int { return e.Code }

func newError(kind Kind, code int, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// ===== Validation Errors =====
var (
	ErrEmptyContent    = newError(KindValidation, 40010, "content cannot be empty")
	ErrMissingFields   = newError(KindValidation, 40011, "question and content are required")
	ErrInvalidVoteType = newError(KindValidation, 40012, "invalid vote type")
	ErrInvalidParent   = newError(KindValidation, 40013, "invalid parent type")
	ErrMissingTitle    = newError(KindValidation, 40014, "title and description are required")
)

// ===== Not Found Errors =====
var (
	ErrQuestionNotFound = newError(KindNotFound, 40410, "question not found")
	ErrAnswerNotFound   = newError(KindNotFound, 40411, "answer not found")
	ErrUserNotFound     = newError(KindNotFound, 40412, "user not found")
	ErrParentNotFound   = newError(KindNotFound, 40413, "parent not found")
)

// ===== Authorization Errors =====
var (
	ErrNotOwner            = newError(KindForbidden, 40310, "you are not the owner of this resource")
	ErrUnauthorized        = newError(KindForbidden, 40311, "unauthorized to delete this answer")
	ErrSelfVoteForbidden   = newError(KindSelfAction, 40312, "you cannot vote on your own content")
	ErrSelfAnswerForbidden = newError(KindSelfAction, 40313, "you cannot answer your own question")
)

// ===== Consistency Errors =====
var (
	ErrDuplicateVote          = newError(KindDuplicateVote, 40910, "you have already cast this vote")
	ErrUnknownReputationEvent = newError(KindUnknownReputationEvent, 50010, "unknown reputation event")
)

// KindOf returns the kind of err, KindInternal for anything that is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// AsError extracts the domain error from err's chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
