package models

import "time"

// DefaultProfilePicture is assigned at registration until the user uploads
// their own.
const DefaultProfilePicture = "/assets/default-profile.jpg"

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	Password       string    `json:"-"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Profile is the view returned for /users/me and /users/{id}, with the
// user's most recent posts inlined.
type Profile struct {
	User
	Posts []PostWithAuthor `json:"posts"`
}
