package domain

import (
	"encoding/json"
	"fmt"
)

type OAuthIdentity struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

func (o *OAuthIdentity) UnmarshalJSON(b []byte) error {
	var w struct {
		Provider Text `json:"provider"`
		ID       Text `json:"id"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*o = OAuthIdentity{Provider: string(w.Provider), ID: string(w.ID)}
	return nil
}

type User struct {
	ID        string          `json:"_id"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Login     string          `json:"login"`
	Email     string          `json:"email"`
	LastJobID string          `json:"lastJobId,omitempty"`
	OAuth     []OAuthIdentity `json:"oauth,omitempty"`

	raw json.RawMessage
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Identity is the form used when reporting search candidates:
// "First Last" <email> (login).
func (u User) Identity() string {
	return fmt.Sprintf("\"%s\" <%s> (%s)", u.FullName(), u.Email, u.Login)
}

// DisplayName is the form used in listings: First Last (login).
func (u User) DisplayName() string {
	return fmt.Sprintf("%s (%s)", u.FullName(), u.Login)
}

// OAuthProviders returns the distinct providers in first-seen order.
func (u User) OAuthProviders() []string {
	seen := make(map[string]bool, len(u.OAuth))
	var out []string
	for _, o := range u.OAuth {
		if seen[o.Provider] {
			continue
		}
		seen[o.Provider] = true
		out = append(out, o.Provider)
	}
	return out
}

func (u *User) UnmarshalJSON(b []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*u = User(a)
	u.raw = keepRaw(b)
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	if len(u.raw) > 0 {
		return u.raw, nil
	}
	type alias User
	return json.Marshal(alias(u))
}
