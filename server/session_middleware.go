package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/rs/zerolog"
)

type sessionStateKey struct{}

// sessionState is the request's handle on its session cookie.
type sessionState struct {
	session   *sessions.Session
	destroyed bool
}

// SessionMiddleware is APIMiddleware plus session loading, followed by mw.
func (s *Server) SessionMiddleware(mw ...func(http.HandlerFunc) http.HandlerFunc) []func(http.HandlerFunc) http.HandlerFunc {
	return append(s.APIMiddleware(s.LoadSession), mw...)
}

// LoadSession resolves the signed session cookie to a session, puts it in the request
// context and persists it before the response headers go out.
func (s *Server) LoadSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, err := s.svc.Sessions.Load(ctx, s.sessionIDFromCookie(r))
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("load session")
			writeError(w, r, err)
			return
		}

		logger := zerolog.Ctx(ctx).With().Str("session_id", session.ID()).Logger()
		state := &sessionState{session: session}
		ctx = logger.WithContext(sessions.WithSession(ctx, session))
		ctx = context.WithValue(ctx, sessionStateKey{}, state)
		r = r.WithContext(ctx)

		sw := &sessionWriter{ResponseWriter: w}
		sw.commit = func() { s.commitSession(w, r, state) }
		next(sw, r)
		sw.flush()
	}
}

func (s *Server) sessionIDFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil || cookie.Value == "" {
		return ""
	}
	sessionID, err := s.svc.Cookies.Verify(cookie.Value)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring invalid session cookie")
		return ""
	}
	return sessionID
}

// commitSession writes the session and its cookie, or expires the cookie after logout.
func (s *Server) commitSession(w http.ResponseWriter, r *http.Request, state *sessionState) {
	if state.destroyed {
		http.SetCookie(w, s.sessionCookie("", -1))
		return
	}
	saved, err := s.svc.Sessions.Save(r.Context(), state.session)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("save session")
		return
	}
	if !saved {
		return
	}
	value, err := s.svc.Cookies.Sign(state.session.ID(), s.svc.Sessions.TTL())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("sign session cookie")
		return
	}
	http.SetCookie(w, s.sessionCookie(value, int(s.svc.Sessions.TTL().Seconds())))
}

func (s *Server) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.GetSecureCookies(),
		SameSite: http.SameSiteLaxMode,
	}
}

// markSessionDestroyed makes the response expire the session cookie instead of refreshing it.
func markSessionDestroyed(ctx context.Context) {
	if state, ok := ctx.Value(sessionStateKey{}).(*sessionState); ok {
		state.destroyed = true
	}
}

// sessionWriter runs commit once, just before the first byte or status is written.
type sessionWriter struct {
	http.ResponseWriter
	once   sync.Once
	commit func()
}

func (w *sessionWriter) flush() {
	w.once.Do(w.commit)
}

func (w *sessionWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
