package model

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User represents an identity in the authentication system. Local and
// federated signups share one record per email; RefreshTokens holds the
// refresh tokens that are currently accepted for the account.
type User struct {
	ID              bson.ObjectID `bson:"_id,omitempty"`
	Email           string        `bson:"email"`
	Name            string        `bson:"name"`
	PasswordHash    string        `bson:"password_hash,omitempty"`
	IsEmailVerified bool          `bson:"is_email_verified"`
	Provider        string        `bson:"provider"`
	GoogleID        string        `bson:"google_id,omitempty"`
	FacebookID      string        `bson:"facebook_id,omitempty"`
	AvatarURL       string        `bson:"avatar_url,omitempty"`
	RefreshTokens   []string      `bson:"refresh_tokens"`
	LastLoginAt     *time.Time    `bson:"last_login_at,omitempty"`
	CreatedAt       time.Time     `bson:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at"`
}

// HasPassword reports whether the user can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ProviderID returns the external id stored for provider, or "".
func (u *User) ProviderID(provider string) string {
	switch provider {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderFacebook:
		return u.FacebookID
	default:
		return ""
	}
}

// SetProviderID stores the external id for provider. Unknown providers are ignored.
func (u *User) SetProviderID(provider, id string) {
	switch provider {
	case ProviderGoogle:
		u.GoogleID = id
	case ProviderFacebook:
		u.FacebookID = id
	}
}

// HasRefreshToken reports whether token is one of the user's active refresh tokens.
func (u *User) HasRefreshToken(token string) bool {
	for _, t := range u.RefreshTokens {
		if t == token {
			return true
		}
	}
	return false
}

// RemoveRefreshToken drops token from the active set and reports whether it was present.
func (u *User) RemoveRefreshToken(token string) bool {
	kept := u.RefreshTokens[:0]
	removed := false
	for _, t := range u.RefreshTokens {
		if t == token {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	u.RefreshTokens = kept
	return removed
}
