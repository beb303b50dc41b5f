package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/identity"
)

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge(err)
		}
		if errors.Is(err, io.EOF) {
			return common.NewValidationError("request body is required", nil)
		}
		return common.NewValidationError("invalid JSON body", map[string]string{"body": err.Error()})
	}
	return nil
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "authentication required", nil)
}

func errBodyTooLarge(err error) error {
	return common.NewUploadError(http.StatusBadRequest, "request body too large", err)
}

// requireSelf enforces that a client supplied user id, when present, names
// the authenticated caller. "me" is accepted as an alias.
func requireSelf(principal identity.Principal, value, field string) error {
	value = strings.TrimSpace(value)
	if value == "" || value == "me" || value == principal.ID {
		return nil
	}
	return common.NewError(common.CodeForbidden, field+" does not match the authenticated user", nil)
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
