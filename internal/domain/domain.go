// Package domain holds the data records exchanged between the GitLab
// clients, the aggregation services, and the view layer.
package domain

import "time"

// TokenSet is the payload returned by the provider's token endpoint.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// SessionUser is the authenticated user record kept in the session for the
// lifetime of the login.
type SessionUser struct {
	AccessToken string    `json:"access_token"`
	IDToken     string    `json:"id_token"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

// Identity holds the claims decoded locally from the session's ID token.
type Identity struct {
	Subject   string
	Email     string
	Username  string
	Name      string
	AvatarURL string
}

// Profile is the view model for the profile page: local ID-token claims
// merged with the provider-reported last activity date.
type Profile struct {
	Identity
	LastActivityOn string
}

// Activity is a single entry from the provider's events API, passed through
// largely unmodified.
type Activity struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action_name"`
	TargetType string    `json:"target_type"`
	TargetName string    `json:"target_title"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityPage is the view model for the activity feed.
type ActivityPage struct {
	Entries    []Activity
	Page       int
	Limit      int
	TotalPages int
}

// Commit is the latest commit of a project in the group tree.
type Commit struct {
	Title        string
	AuthorName   string
	AuthoredDate string
}

// Project is a project node in the group tree.
type Project struct {
	Name         string
	Path         string
	Description  string
	LatestCommit *Commit
}

// Group is a top-level node in the group tree.
type Group struct {
	Name        string
	FullPath    string
	Description string
	Projects    []Project
}
