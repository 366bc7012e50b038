package model

import "time"

// User is a signed-in account. Identity comes from GitHub OAuth; ID is our
// own xid so snippet ownership never depends on the provider's numbering.
//
// Email may be empty when the GitHub account hides it.
type User struct {
	ID        string    `json:"id"`
	GitHubID  int64     `json:"githubId"`
	Login     string    `json:"login"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName picks the friendliest non-empty label for greetings.
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Login != "" {
		return u.Login
	}
	return "User"
}
