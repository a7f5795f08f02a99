package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the display identity decoded from an access token. The signature
// is never checked, so nothing here may be used for authorization.
type Claims struct {
	Subject   string    `json:"sub"`
	Name      string    `json:"name,omitempty"`
	Scope     []string  `json:"scope,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	Issuer    string    `json:"iss,omitempty"`
}

// AccountID is the identity-service account the salon API links customers to.
func (c *Claims) AccountID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// HasScope reports whether the token lists scope s.
func (c *Claims) HasScope(s string) bool {
	if c == nil {
		return false
	}
	for _, v := range c.Scope {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

var unverifiedParser = jwt.NewParser()

// DecodeClaims decodes the payload segment of a JWT without verifying it.
// Malformed input yields (nil, false) rather than an error.
func DecodeClaims(token string) (*Claims, bool) {
	token = strings.TrimSpace(token)
	if token == "" || strings.Count(token, ".") != 2 {
		return nil, false
	}

	mc := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, mc); err != nil {
		return nil, false
	}

	c := &Claims{
		Subject: firstString(mc, "sub", "accountId", "AccountId", "nameid"),
		Name:    firstString(mc, "name", "unique_name", "preferred_username", "fullName"),
		Scope:   scopeList(mc["scope"]),
	}
	if iss, err := mc.GetIssuer(); err == nil {
		c.Issuer = iss
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if c.Subject == "" {
		return nil, false
	}
	return c, true
}

func firstString(mc jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if s, ok := mc[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func scopeList(v any) []string {
	switch s := v.(type) {
	case string:
		return strings.Fields(s)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
