package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"socialapi/internal/models"
)

const postWithAuthorColumns = `
	p.id, p.user_id, p.text, p.images,
	(SELECT COUNT(*) FROM post_likes pl WHERE pl.post_id = p.id),
	p.created_at, p.updated_at, u.username, u.profile_picture`

func scanPostWithAuthor(row interface{ Scan(...interface{}) error }) (*models.PostWithAuthor, error) {
	var p models.PostWithAuthor
	err := row.Scan(
		&p.ID, &p.UserID, &p.Text, pq.Array(&p.Images), &p.Likes,
		&p.CreatedAt, &p.UpdatedAt, &p.AuthorUsername, &p.AuthorPicture,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func CreatePost(db *sql.DB, userID, text string, images []string) (*models.Post, error) {
	var p models.Post
	err := db.QueryRow(
		`INSERT INTO posts (user_id, text, images) VALUES ($1, $2, $3)
		 RETURNING id, user_id, text, images, created_at, updated_at`,
		userID, text, pq.Array(images),
	).Scan(&p.ID, &p.UserID, &p.Text, pq.Array(&p.Images), &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return &p, nil
}

func GetPostByID(db *sql.DB, id string) (*models.PostWithAuthor, error) {
	p, err := scanPostWithAuthor(db.QueryRow(
		`SELECT`+postWithAuthorColumns+`
		 FROM posts p JOIN users u ON p.user_id = u.id WHERE p.id = $1`,
		id,
	))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func GetPosts(db *sql.DB) ([]models.PostWithAuthor, error) {
	return queryPosts(db,
		`SELECT`+postWithAuthorColumns+`
		 FROM posts p JOIN users u ON p.user_id = u.id
		 ORDER BY p.created_at DESC`)
}

func GetPostsByUser(db *sql.DB, userID string, limit int) ([]models.PostWithAuthor, error) {
	return queryPosts(db,
		`SELECT`+postWithAuthorColumns+`
		 FROM posts p JOIN users u ON p.user_id = u.id
		 WHERE p.user_id = $1
		 ORDER BY p.created_at DESC LIMIT $2`,
		userID, limit)
}

func queryPosts(db *sql.DB, query string, args ...interface{}) ([]models.PostWithAuthor, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	var posts []models.PostWithAuthor
	for rows.Next() {
		p, err := scanPostWithAuthor(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	if posts == nil {
		posts = []models.PostWithAuthor{}
	}
	return posts, rows.Err()
}

func UpdatePostText(db *sql.DB, id, text string) (*models.Post, error) {
	var p models.Post
	err := db.QueryRow(
		`UPDATE posts SET text = $1, updated_at = NOW() WHERE id = $2
		 RETURNING id, user_id, text, images, created_at, updated_at`,
		text, id,
	).Scan(&p.ID, &p.UserID, &p.Text, pq.Array(&p.Images), &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return &p, nil
}

// DeletePost removes the post; comment and like rows go with it via ON
// DELETE CASCADE. The stored image references are returned so the caller
// can clean up the files.
func DeletePost(db *sql.DB, id string) ([]string, error) {
	var images []string
	err := db.QueryRow(
		`DELETE FROM posts WHERE id = $1 RETURNING images`,
		id,
	).Scan(pq.Array(&images))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}
	return images, nil
}

// TogglePostLike adds the user's like if absent, otherwise removes it. Both
// arms are single atomic statements on the join table, so concurrent
// toggles by different users never clobber each other and the same user is
// never counted twice.
func TogglePostLike(db *sql.DB, postID, userID string) (liked bool, likes int, err error) {
	res, err := db.Exec(
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		postID, userID,
	)
	if err != nil {
		return false, 0, fmt.Errorf("failed to like post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	if n == 0 {
		if _, err := db.Exec(
			`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
			postID, userID,
		); err != nil {
			return false, 0, fmt.Errorf("failed to unlike post: %w", err)
		}
		liked = false
	} else {
		liked = true
	}

	err = db.QueryRow(
		`SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID,
	).Scan(&likes)
	if err != nil {
		return liked, 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return liked, likes, nil
}
