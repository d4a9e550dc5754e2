package models

import "time"

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Images    []string  `json:"images"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PostWithAuthor struct {
	Post
	AuthorUsername string `json:"author_username"`
	AuthorPicture  string `json:"author_picture"`
}
