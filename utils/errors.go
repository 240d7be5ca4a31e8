package utils

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

// ErrKind classifies a service failure. Handlers dispatch on the kind,
// never on the message text.
type ErrKind int

const (
	ErrUnknown ErrKind = iota
	ErrAuth
	ErrValidation
	ErrForbidden
	ErrNotFound
	ErrConflict
)

// Error carries a kind alongside a client-safe message.
type Error struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func AuthError(message string) *Error {
	return &Error{Kind: ErrAuth, Message: message}
}

func ValidationError(message string) *Error {
	return &Error{Kind: ErrValidation, Message: message}
}

func ForbiddenError(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

func NotFoundError(message string) *Error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func ConflictError(message string) *Error {
	return &Error{Kind: ErrConflict, Message: message}
}

// UnknownError wraps an unexpected failure. The cause is kept for
// logging; clients only ever see the generic message.
func UnknownError(err error) *Error {
	return &Error{Kind: ErrUnknown, Message: "Internal server error", Err: err}
}

// KindOf extracts the kind of err, or ErrUnknown for plain errors.
func KindOf(err error) ErrKind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrUnknown
}

func statusFor(kind ErrKind) int {
	switch kind {
	case ErrAuth:
		return http.StatusUnauthorized
	case ErrValidation:
		return http.StatusBadRequest
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError writes err as a JSON response with the status
// matching its kind. Unknown failures never leak their cause.
func HandleServiceError(err error, ctx iris.Context) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		CreateInternalServerError(ctx)
		return
	}
	if appErr.Kind == ErrUnknown {
		CreateInternalServerError(ctx)
		return
	}
	ctx.StopWithJSON(statusFor(appErr.Kind), iris.Map{"message": appErr.Message})
}

func CreateError(statusCode int, title string, detail string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, iris.Map{"message": detail, "title": title})
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "Internal server error", ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "Resource not found", ctx)
}

// HandleValidationErrors maps ReadJSON failures to a 400 with the
// offending fields listed, one entry per failed validator tag.
func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]iris.Map, 0, len(errs))
		for _, fieldErr := range errs {
			fields = append(fields, iris.Map{
				"field": fieldErr.Field(),
				"tag":   fieldErr.Tag(),
				"value": fieldErr.Value(),
			})
		}
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"message": "Validation failed",
			"fields":  fields,
		})
		return
	}
	CreateError(iris.StatusBadRequest, "Bad Request", "Invalid request body", ctx)
}
