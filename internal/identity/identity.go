package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrUnauthenticated = errors.New("no user or guest identity present")

// Owner is the key every cart and order hangs off: exactly one of UserID /
// GuestID is set. Authenticated identity always wins over a simultaneously
// present guest id.
type Owner struct {
	UserID  *uuid.UUID
	GuestID *string
	Email   string
}

func (o Owner) Valid() bool {
	return o.UserID != nil || o.GuestID != nil
}

// Key returns a stable string form of the owner, used as the cart cache key.
func (o Owner) Key() string {
	if o.UserID != nil {
		return fmt.Sprintf("user:%s", o.UserID)
	}
	if o.GuestID != nil {
		return fmt.Sprintf("guest:%s", *o.GuestID)
	}
	return ""
}

type contextKey struct{}

func WithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, contextKey{}, owner)
}

// FromContext resolves the request owner placed by the middleware. It fails
// with ErrUnauthenticated when neither a bearer identity nor a guest id was
// present.
func FromContext(ctx context.Context) (Owner, error) {
	owner, ok := ctx.Value(contextKey{}).(Owner)
	if !ok || !owner.Valid() {
		return Owner{}, ErrUnauthenticated
	}
	return owner, nil
}

// Resolver parses bearer tokens and combines them with client-supplied guest
// ids into an Owner.
type Resolver struct {
	jwtSecret []byte
}

func NewResolver(jwtSecret string) *Resolver {
	return &Resolver{jwtSecret: []byte(jwtSecret)}
}

// Resolve builds the owner key for a request. bearer may be empty; guestID is
// the opaque client-supplied token from cookie or header. A valid bearer token
// takes precedence over the guest id.
func (r *Resolver) Resolve(bearer, guestID string) (Owner, error) {
	if bearer != "" {
		userID, email, err := r.parseBearer(bearer)
		if err == nil {
			return Owner{UserID: &userID, Email: email}, nil
		}
		// An invalid token does not silently fall back to guest identity.
		return Owner{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if guestID != "" {
		return Owner{GuestID: &guestID}, nil
	}
	return Owner{}, ErrUnauthenticated
}

func (r *Resolver) parseBearer(tokenString string) (uuid.UUID, string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}
	if !token.Valid {
		return uuid.Nil, "", errors.New("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, "", errors.New("token has no subject")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("subject is not a user id: %w", err)
	}

	email, _ := claims["email"].(string)
	return userID, email, nil
}
