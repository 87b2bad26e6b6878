package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/webapp/internal/common"
)

type identityKey struct{}

// Identity is the authenticated caller.
type Identity struct {
	AccountID string
	Email     string
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller attached by the authentication middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// basicCredentials returns the Basic auth email and password of r. The
// password may contain colons; an empty email is rejected.
func basicCredentials(r *http.Request) (email, password string, ok bool) {
	email, password, ok = r.BasicAuth()
	if !ok || email == "" {
		return "", "", false
	}
	return email, password, true
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := basicCredentials(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="webapp", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		u, err := s.users.Authenticate(r.Context(), email, password)
		if err != nil {
			if errors.Is(err, common.ErrorUnauthorized) {
				w.Header().Set("WWW-Authenticate", `Basic realm="webapp", charset="UTF-8"`)
			}
			s.writeServiceError(r.Context(), w, err)
			return
		}

		ctx := withIdentity(r.Context(), Identity{AccountID: u.ID, Email: u.Email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireVerified rejects callers whose account is not verified yet.
func (s *Server) requireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		u, err := s.users.GetByID(r.Context(), id.AccountID)
		if err != nil {
			s.writeServiceError(r.Context(), w, err)
			return
		}
		if !u.Verified {
			writeError(w, http.StatusForbidden, "account_not_verified")
			return
		}

		next.ServeHTTP(w, r)
	})
}
