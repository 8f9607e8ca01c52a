package httpapi

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validationMessage flattens validator errors into "field: tag" pairs.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "invalid input"
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
