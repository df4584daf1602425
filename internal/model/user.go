// Package model defines the data structures shared across the application.
// Plain structs with json tags; no behaviour lives here.
package model

import "time"

// User is a registered account.
//
// The ID is the user's login email. Every other record (stats, group
// membership, notes, messages) refers to users by that email, so the email
// doubles as the primary key.
//
// WHY PasswordHash `json:"-"`?
// The bcrypt hash must never leave the server. The "-" tag makes
// encoding/json skip the field entirely, so handlers can return a *User
// without a separate response DTO.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	GitHubID     int64     `json:"githubId"   db:"github_id"` // 0 when the account never used GitHub login
	Login        string    `json:"login"      db:"login"`     // GitHub username, may be empty
	CreatedAt    time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"  db:"updated_at"`
}
