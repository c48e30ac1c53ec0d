package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Kinds. Every *Error unwraps to exactly one of them.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrUnprocessable      = errors.New("unprocessable entity")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInternal           = errors.New("internal error")
	ErrInvalidFilter      = errors.New("invalid filter")
)

// Specific failures, each wrapping its kind.
var (
	ErrAlreadyExists      = fmt.Errorf("%w: already exists", ErrBadRequest)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrBadRequest)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthorized)
)

const (
	MsgAlreadyExists      = "User with these credentials already exists"
	MsgInvalidCredentials = "User with this login and password was not found"
	MsgStorageUnavailable = "Error occurred while connecting to the database"
	MsgInternal           = "internal server error"
)

// Error is an application failure that knows how it is rendered over HTTP.
type Error struct {
	Status    int
	ErrorCode string
	Message   string

	kind  error
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

func newError(status int, kind error, code, msg string, cause error) *Error {
	return &Error{Status: status, ErrorCode: code, Message: msg, kind: kind, cause: cause}
}

func NewBadRequest(msg string) *Error {
	return newError(http.StatusBadRequest, ErrBadRequest, "", msg, nil)
}

func NewNotFound(msg string) *Error {
	return newError(http.StatusNotFound, ErrNotFound, "", msg, nil)
}

func NewUnauthorized(msg string) *Error {
	return newError(http.StatusUnauthorized, ErrUnauthorized, "", msg, nil)
}

func NewForbidden(msg string) *Error {
	return newError(http.StatusForbidden, ErrForbidden, "", msg, nil)
}

func NewUnprocessable(msg string) *Error {
	return newError(http.StatusUnprocessableEntity, ErrUnprocessable, "", msg, nil)
}

// NewAlreadyExists reports a duplicate registration. The message never says
// which of email or phone collided.
func NewAlreadyExists() *Error {
	return newError(http.StatusBadRequest, ErrAlreadyExists, "", MsgAlreadyExists, nil)
}

// NewInvalidCredentials is shared by "no such user" and "wrong password".
func NewInvalidCredentials() *Error {
	return newError(http.StatusBadRequest, ErrInvalidCredentials, "", MsgInvalidCredentials, nil)
}

func NewInvalidToken(msg string) *Error {
	return newError(http.StatusUnauthorized, ErrInvalidToken, "", msg, nil)
}

func NewTokenExpired() *Error {
	return newError(http.StatusUnauthorized, ErrTokenExpired, "", "Token expired", nil)
}

func NewInvalidFilter(msg string) *Error {
	return newError(http.StatusBadRequest, ErrInvalidFilter, "invalid_filter", msg, nil)
}

// WithCode attaches a machine-readable code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.ErrorCode = code
	return &cp
}

// WrapStorage marks err as a failure talking to the backing store.
func WrapStorage(err error, context string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return newError(http.StatusServiceUnavailable, ErrStorageUnavailable, "", context, err)
}

func WrapInternal(err error, context string) error {
	return newError(http.StatusInternalServerError, ErrInternal, "", context, err)
}

func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsInvalidFilter(err error) bool {
	return errors.Is(err, ErrInvalidFilter)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsTokenExpired(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// Body is the uniform JSON error payload. Numeric codes such as the
// storage "503" go over the wire as JSON numbers.
type Body struct {
	ErrorCode *string `json:"error_code"`
	Message   string  `json:"message"`
}

type wireBody struct {
	ErrorCode json.RawMessage `json:"error_code"`
	Message   string          `json:"message"`
}

func (b Body) MarshalJSON() ([]byte, error) {
	code := json.RawMessage("null")
	if b.ErrorCode != nil {
		if n, err := strconv.Atoi(*b.ErrorCode); err == nil {
			code = strconv.AppendInt(nil, int64(n), 10)
		} else {
			raw, err := json.Marshal(*b.ErrorCode)
			if err != nil {
				return nil, err
			}
			code = raw
		}
	}
	return json.Marshal(wireBody{ErrorCode: code, Message: b.Message})
}

func (b *Body) UnmarshalJSON(data []byte) error {
	var w wireBody
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	b.Message = w.Message
	b.ErrorCode = nil
	if len(w.ErrorCode) == 0 || string(w.ErrorCode) == "null" {
		return nil
	}

	var code string
	if err := json.Unmarshal(w.ErrorCode, &code); err != nil {
		var n json.Number
		if err := json.Unmarshal(w.ErrorCode, &n); err != nil {
			return fmt.Errorf("error_code: %w", err)
		}
		code = n.String()
	}
	b.ErrorCode = &code
	return nil
}

// Render maps any error to an HTTP status and body. Storage failures never
// leak their cause.
func Render(err error) (int, Body) {
	if IsStorageUnavailable(err) {
		code := "503"
		return http.StatusServiceUnavailable, Body{ErrorCode: &code, Message: MsgStorageUnavailable}
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			return appErr.Status, Body{Message: MsgInternal}
		}
		body := Body{Message: appErr.Message}
		if appErr.ErrorCode != "" {
			code := appErr.ErrorCode
			body.ErrorCode = &code
		}
		return appErr.Status, body
	}

	return http.StatusInternalServerError, Body{Message: MsgInternal}
}
