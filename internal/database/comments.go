package database

import (
	"database/sql"
	"fmt"

	"socialapi/internal/models"
)

// CreateComment inserts a comment and returns it with the author's public
// fields attached.
func CreateComment(db *sql.DB, postID, userID, text string) (*models.CommentWithAuthor, error) {
	var c models.CommentWithAuthor
	err := db.QueryRow(`
		WITH inserted AS (
		    INSERT INTO comments (post_id, user_id, text)
		    VALUES ($1, $2, $3)
		    RETURNING id, post_id, user_id, text, created_at
		)
		SELECT i.id, i.post_id, i.user_id, i.text, i.created_at, u.username, u.profile_picture
		FROM inserted i JOIN users u ON i.user_id = u.id
	`, postID, userID, text,
	).Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.CreatedAt, &c.AuthorUsername, &c.AuthorPicture)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &c, nil
}

func GetCommentByID(db *sql.DB, id string) (*models.Comment, error) {
	var c models.Comment
	err := db.QueryRow(
		`SELECT c.id, c.post_id, c.user_id, c.text,
		        (SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id),
		        c.created_at
		 FROM comments c WHERE c.id = $1`,
		id,
	).Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.Likes, &c.CreatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

func GetComments(db *sql.DB, postID string) ([]models.CommentWithAuthor, error) {
	rows, err := db.Query(
		`SELECT c.id, c.post_id, c.user_id, c.text,
		        (SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id),
		        c.created_at, u.username, u.profile_picture
		 FROM comments c JOIN users u ON c.user_id = u.id
		 WHERE c.post_id = $1
		 ORDER BY c.created_at DESC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	var comments []models.CommentWithAuthor
	for rows.Next() {
		var c models.CommentWithAuthor
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Text, &c.Likes,
			&c.CreatedAt, &c.AuthorUsername, &c.AuthorPicture); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	if comments == nil {
		comments = []models.CommentWithAuthor{}
	}
	return comments, rows.Err()
}

func DeleteComment(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleCommentLike mirrors TogglePostLike on the comment_likes table.
func ToggleCommentLike(db *sql.DB, commentID, userID string) (liked bool, likes int, err error) {
	res, err := db.Exec(
		`INSERT INTO comment_likes (comment_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		commentID, userID,
	)
	if err != nil {
		return false, 0, fmt.Errorf("failed to like comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, 0, err
	}
	if n == 0 {
		if _, err := db.Exec(
			`DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2`,
			commentID, userID,
		); err != nil {
			return false, 0, fmt.Errorf("failed to unlike comment: %w", err)
		}
		liked = false
	} else {
		liked = true
	}

	err = db.QueryRow(
		`SELECT COUNT(*) FROM comment_likes WHERE comment_id = $1`, commentID,
	).Scan(&likes)
	if err != nil {
		return liked, 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return liked, likes, nil
}
