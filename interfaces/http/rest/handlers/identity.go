package handlers

import (
	"net/http"
	"strings"

	"mathops/pkg/auth"
	appErrors "mathops/pkg/errors"
)

// resolveEmail picks the identity a request acts for. Without an
// authenticated caller the requested email is used as is; with one, the
// email defaults to the caller's and may not name anybody else. A match
// differing only in case resolves to the caller's own email.
func resolveEmail(r *http.Request, requested string) (string, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return requested, nil
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return user.Email, nil
	}
	if !strings.EqualFold(requested, user.Email) {
		return "", appErrors.NewForbiddenError("email does not match the authenticated caller")
	}
	return user.Email, nil
}
