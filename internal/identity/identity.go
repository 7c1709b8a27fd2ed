// Package identity resolves trusted user ids to profile snapshots.
package identity

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/auth"
)

var ErrUserNotFound = errors.New("user not found")

// User is the profile snapshot denormalized into conversations.
type User struct {
	ID          string
	DisplayName string
	Role        string
}

// Provider resolves an opaque user id. Implementations return
// ErrUserNotFound for unknown ids.
type Provider interface {
	Resolve(ctx context.Context, uid string) (*User, error)
}

type firebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider resolves users against Firebase Auth. The role is
// taken from the "role" custom claim; accounts without one default to
// buyer.
func NewFirebaseProvider(client *auth.Client) Provider {
	return &firebaseProvider{client: client}
}

func (p *firebaseProvider) Resolve(ctx context.Context, uid string) (*User, error) {
	rec, err := p.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	name := rec.DisplayName
	if name == "" {
		name = rec.Email
	}
	if name == "" {
		name = uid
	}
	role := "buyer"
	if claim, ok := rec.CustomClaims["role"].(string); ok && claim != "" {
		role = claim
	}
	return &User{ID: rec.UID, DisplayName: name, Role: role}, nil
}
