package models

import "github.com/golang-jwt/jwt/v5"

// Claims represents the JWT claims issued by the identity provider.
// Only the fields the editor needs are decoded.
type Claims struct {
	jwt.RegisteredClaims                // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string         `json:"email"`
	Role                 string         `json:"role"` // "authenticated" or "anon"
	UserMetadata         map[string]any `json:"user_metadata"`
}

// GetUserID returns the user ID from the JWT subject claim
func (c *Claims) GetUserID() string {
	return c.Subject
}

// GetDisplayName returns the name shown to other editors when this user
// holds a lock. Falls back to the email, then the subject.
func (c *Claims) GetDisplayName() string {
	for _, key := range []string{"full_name", "name"} {
		if name, ok := c.UserMetadata[key].(string); ok && name != "" {
			return name
		}
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}
