package middleware

import (
	"net/http"
	"strings"

	"github.com/copilotchat/copilot/backend/pkg/utils"
)

// TokenVerifier decides whether a bearer token identifies a signed-in user.
// The hosted identity provider sits behind this interface.
type TokenVerifier interface {
	Verify(token string) bool
}

// StaticVerifier accepts exactly one configured token.
type StaticVerifier struct {
	token string
}

// NewStaticVerifier returns a verifier for the given token.
func NewStaticVerifier(token string) *StaticVerifier {
	return &StaticVerifier{token: token}
}

// Verify reports whether the presented token matches.
func (v *StaticVerifier) Verify(token string) bool {
	return v.token != "" && token == v.token
}

// RequireAuth rejects requests whose bearer token the verifier declines.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || !verifier.Verify(strings.TrimSpace(token)) {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
