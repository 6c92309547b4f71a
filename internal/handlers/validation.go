package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON/form names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return v
}

// ValidateRequest validates a request struct using go-playground/validator.
// It returns every rejected field, or nil.
func ValidateRequest(req any) []pkghttp.FieldError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []pkghttp.FieldError{{Field: "body", Message: "invalid request"}}
	}
	fields := make([]pkghttp.FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, pkghttp.FieldError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return fields
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "numeric":
		return "must contain only digits"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}

// decodeJSON reads a JSON body into dst and validates it. On failure it
// writes the response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			pkghttp.WritePayloadTooLarge(w, "Request body too large")
		case errors.As(err, &typeErr):
			pkghttp.WriteValidationError(w, []pkghttp.FieldError{{Field: typeErr.Field, Message: "has the wrong type"}})
		case errors.Is(err, io.EOF):
			pkghttp.WriteBadRequest(w, "Request body is empty")
		default:
			pkghttp.WriteBadRequest(w, "Invalid request body")
		}
		return false
	}
	if fields := ValidateRequest(dst); fields != nil {
		pkghttp.WriteValidationError(w, fields)
		return false
	}
	return true
}

// parsePage reads skip and limit query parameters.
func parsePage(r *http.Request) (limit, offset int, fields []pkghttp.FieldError) {
	q := r.URL.Query()
	parse := func(name string, def int) int {
		raw := q.Get(name)
		if raw == "" {
			return def
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fields = append(fields, pkghttp.FieldError{Field: name, Message: "must be a non-negative integer"})
			return def
		}
		return n
	}
	offset = parse("skip", 0)
	limit = parse("limit", 100)
	return limit, offset, fields
}
