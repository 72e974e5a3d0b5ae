package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error kinds. Every service error wraps exactly one of these so the
// transport layer can pick a status code with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBusy         = errors.New("store is busy")
)

// kindError is a sentinel with its own message that still matches its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// validationErrorf builds an ErrValidation whose message is shown to callers as is.
func validationErrorf(format string, args ...interface{}) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// --- Custom Service Errors ---
var (
	ErrMemberNotFound   = newKindError(ErrNotFound, "member not found")
	ErrSportNotFound    = newKindError(ErrNotFound, "sport not found")
	ErrClubNotFound     = newKindError(ErrNotFound, "sports club not found")
	ErrDuplicatePhone   = newKindError(ErrValidation, "a member with this phone number already exists")
	ErrSportExists      = newKindError(ErrValidation, "a sport with this name already exists")
	ErrDateFormat       = newKindError(ErrValidation, "invalid date format, please use YYYY-MM-DD")
	ErrInvalidAmount    = newKindError(ErrValidation, "amount must be greater than zero")
	ErrInvalidPeriod    = newKindError(ErrValidation, "period end must not be before period start")
	ErrInvalidToken     = newKindError(ErrUnauthorized, "invalid or expired token")
	ErrMissingToken     = newKindError(ErrUnauthorized, "authorization token required")
	ErrInvalidAPIToken  = newKindError(ErrUnauthorized, "invalid API token")
	ErrNoClubAccess     = newKindError(ErrForbidden, "no access to this sports club")
	ErrSpreadsheetInUse = newKindError(ErrValidation, "spreadsheetId is already in use")
	ErrReadOnlyAccess   = newKindError(ErrForbidden, "read-only access to this sports club")
	ErrNotClubOwner     = newKindError(ErrForbidden, "only the owner can change this sports club")
	ErrWriteGateTimeout = newKindError(ErrBusy, "another update is in progress, please retry")
	ErrInvalidPayload   = newKindError(ErrValidation, "invalid request payload")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := validate.RegisterValidation("grantee", func(fl validator.FieldLevel) bool {
		return isGrantee(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// validateRequest runs struct tag validation and turns the first failure
// into a readable ErrValidation.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return validationErrorf("%v", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return validationErrorf("%s is required", fe.Field())
	case "email":
		return validationErrorf("%s must be a valid email address", fe.Field())
	case "datetime":
		return validationErrorf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "grantee":
		return validationErrorf("%s must be an email address or %s", fe.Field(), accessWildcard)
	case "oneof":
		return validationErrorf("%s must be one of: %s", fe.Field(), fe.Param())
	case "gt", "gte", "min":
		return validationErrorf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return validationErrorf("%s is invalid", fe.Field())
	}
}
