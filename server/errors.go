package server

import (
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/rs/zerolog"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorStatuses maps sentinel errors to responses. The first match wins, so more
// specific sentinels come first.
var errorStatuses = []errorMapping{
	{apperrors.ErrWeakPassword, http.StatusUnprocessableEntity, "weak_password"},
	{apperrors.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{apperrors.ErrSessionNotFound, http.StatusUnauthorized, "unauthenticated"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperrors.ErrNotAMember, http.StatusForbidden, "not_a_member"},
	{apperrors.ErrNoTenantSelected, http.StatusConflict, "no_tenant_selected"},
	{apperrors.ErrTenantNotFound, http.StatusNotFound, "tenant_not_found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrVersionConflict, http.StatusConflict, "version_conflict"},
	{apperrors.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{apperrors.ErrDuplicateDocument, http.StatusConflict, "duplicate_document"},
	{apperrors.ErrUniqueViolation, http.StatusConflict, "conflict"},
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError turns err into a JSON error body. Client errors carry the wrapped
// message; anything unmapped is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorStatuses {
		if apperrors.Is(err, m.err) {
			zerolog.Ctx(r.Context()).Debug().Err(err).Int("status", m.status).Msg("request rejected")
			writeJSON(w, m.status, errorResponse{Error: m.code, Message: clientMessage(err, m.err)})
			return
		}
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: apperrors.ErrInternal.Error()})
}

// clientMessage hides the bracketed call path, keeping only the sentinel and any
// detail appended after it (such as the broken password rules).
func clientMessage(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()); i >= 0 {
		return msg[i:]
	}
	return sentinel.Error()
}
