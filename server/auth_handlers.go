package server

import (
	"net/http"

	"github.com/jrsteele09/go-tenant-server/auth"
	apperrors "github.com/jrsteele09/go-tenant-server/internal/errors"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/users"
	"github.com/rs/zerolog"
)

type signupRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type signupResponse struct {
	User     *users.User `json:"user"`
	MailSent bool        `json:"mailSent"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Outcome      auth.Outcome              `json:"outcome"`
	AutoSelected bool                      `json:"autoSelected"`
	Selection    *sessions.TenantSelection `json:"selection,omitempty"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type passwordValidationResponse struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}

type meResponse struct {
	UserID    int64                     `json:"userId"`
	Email     string                    `json:"email"`
	Selection *sessions.TenantSelection `json:"selection,omitempty"`
}

// SignupHandler creates an unconfirmed user. A failed mail delivery still
// answers 201 with mailSent false; forgot-password re-issues the secret.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		user, err := s.svc.Credentials.Signup(r.Context(), req.Name, req.Email)
		if user == nil {
			writeError(w, r, err)
			return
		}
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Int64("user_id", user.ID).Msg("signup mail not delivered")
		}
		writeJSON(w, http.StatusCreated, signupResponse{User: user, MailSent: err == nil})
	}
}

// LoginHandler confirms a provisional secret or checks the password, moves the
// session to a new id, then auto-selects the user's company when they have exactly one.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		ctx := r.Context()
		previousUserID, _ := currentUserID(r)

		outcome, err := s.svc.Credentials.LoginOrConfirm(ctx, req.Email, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID, err := currentUserID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		session, err := sessions.FromContext(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.svc.Sessions.Regenerate(ctx, session); err != nil {
			writeError(w, r, err)
			return
		}
		if previousUserID != 0 && previousUserID != userID {
			// A selection made by the previous user must not carry over.
			if err := s.svc.Tenancy.ClearSelection(ctx); err != nil {
				writeError(w, r, err)
				return
			}
		}

		resp := loginResponse{Outcome: outcome}
		resp.AutoSelected, err = s.svc.Tenancy.EnsureAutoSelectionIfSingle(ctx, userID)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("user_id", userID).Msg("auto selection failed")
		}
		if sel, err := s.svc.Tenancy.ActiveSelection(ctx); err == nil {
			resp.Selection = &sel
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ForgotPasswordHandler always answers 202 so the response never reveals whether
// an email is registered.
func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.svc.Credentials.ForgotPassword(r.Context(), req.Email); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("forgot password failed")
		}
		writeJSON(w, http.StatusAccepted, nil)
	}
}

// SetPasswordHandler sets the logged-in user's official password.
func (s *Server) SetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		identity, err := sessions.IdentityFrom(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		email, err := identity.RequireEmail()
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.svc.Credentials.SetPasswordAfterConfirm(r.Context(), email, req.Password); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) ValidatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		reasons := users.PasswordProblems(req.Password)
		if reasons == nil {
			reasons = []string{}
		}
		writeJSON(w, http.StatusOK, passwordValidationResponse{Valid: len(reasons) == 0, Reasons: reasons})
	}
}

// LogoutHandler clears identity and selection and destroys the stored session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, err := sessions.FromContext(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		session.Identity().Logout()
		session.Tenant().Clear()
		if err := s.svc.Sessions.Destroy(ctx, session); err != nil {
			writeError(w, r, err)
			return
		}
		markSessionDestroyed(ctx)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := sessions.IdentityFrom(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		userID, err := identity.RequireUserID()
		if err != nil {
			writeError(w, r, err)
			return
		}
		email, err := identity.RequireEmail()
		if err != nil {
			writeError(w, r, apperrors.ErrUnauthenticated)
			return
		}
		resp := meResponse{UserID: userID, Email: email}
		if sel, err := s.svc.Tenancy.ActiveSelection(r.Context()); err == nil {
			resp.Selection = &sel
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
