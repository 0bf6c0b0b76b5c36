package identity

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	guestCookieName = "guest_id"
	guestHeaderName = "X-Guest-ID"

	guestCookieMaxAge = 60 * 60 * 24 * 30 // 30 days
)

// Middleware resolves the request owner and stores it in the context. When no
// identity is present at all, a fresh guest id is minted and set as a cookie
// so the very first add-to-cart already has an owner key.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		bearer := bearerToken(req)
		guestID := guestIdentity(req)

		if bearer == "" && guestID == "" {
			guestID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     guestCookieName,
				Value:    guestID,
				Path:     "/",
				MaxAge:   guestCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		owner, err := r.Resolve(bearer, guestID)
		if err != nil {
			// Leave the context owner-less; handlers that need identity
			// surface ErrUnauthenticated at their boundary.
			next.ServeHTTP(w, req)
			return
		}

		next.ServeHTTP(w, req.WithContext(WithOwner(req.Context(), owner)))
	})
}

func bearerToken(req *http.Request) string {
	auth := req.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func guestIdentity(req *http.Request) string {
	if id := req.Header.Get(guestHeaderName); id != "" {
		return id
	}
	if c, err := req.Cookie(guestCookieName); err == nil {
		return c.Value
	}
	return ""
}
