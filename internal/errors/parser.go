package errors

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo is a storage error translated for clients.
type ErrorInfo struct {
	Status  int
	Code    string
	Message string
}

// ParseError maps database and connectivity errors to a client-safe code.
// subject names the resource involved ("order", "product", ...).
func ParseError(err error, subject string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalServerError, Message: "Something went wrong"}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Status: http.StatusNotFound, Code: ResourceNotFound, Message: notFoundMessage(subject)}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint"):
		if strings.Contains(msg, "email") {
			return ErrorInfo{Status: http.StatusConflict, Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
		}
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "This record already exists"}
	case strings.Contains(msg, "foreign key constraint"):
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "A referenced record is missing or still in use"}
	case strings.Contains(msg, "violates not-null constraint") || strings.Contains(msg, "not null constraint"):
		return ErrorInfo{Status: http.StatusBadRequest, Code: ValidationRequired, Message: "A required field is missing"}
	case strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "broken pipe"):
		return ErrorInfo{Status: http.StatusServiceUnavailable, Code: InternalStoreDown, Message: "The store is temporarily unavailable, please retry"}
	}

	return ErrorInfo{Status: http.StatusInternalServerError, Code: InternalDatabaseError, Message: "Something went wrong, please try again shortly"}
}

func notFoundMessage(subject string) string {
	if subject == "" {
		return "The requested record was not found"
	}
	s := strings.ToUpper(subject[:1]) + subject[1:]
	return s + " not found"
}

// ParseAndRespond writes the parsed error with its own status code.
func ParseAndRespond(c interface{ JSON(int, interface{}) }, err error, subject string) {
	info := ParseError(err, subject)
	c.JSON(info.Status, ErrorResponse{
		Error:   info.Code,
		Message: info.Message,
	})
}
