package database

import (
	"database/sql"
	"fmt"
	"strings"

	"socialapi/internal/models"
)

// CreateUser inserts a new user. Username and email are stored lower-cased;
// collisions surface as ErrDuplicateUsername / ErrDuplicateEmail.
func CreateUser(db *sql.DB, username, email, passwordHash string) (*models.User, error) {
	var u models.User
	err := db.QueryRow(
		`INSERT INTO users (username, email, password, profile_picture)
		 VALUES (LOWER($1), LOWER($2), $3, $4)
		 RETURNING id, username, email, profile_picture, created_at, updated_at`,
		username, email, passwordHash, models.DefaultProfilePicture,
	).Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err = translateUnique(err); err == ErrDuplicateUsername || err == ErrDuplicateEmail {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &u, nil
}

// GetUserByIdentifier looks a user up by username or email,
// case-insensitively. The returned user includes the password hash.
func GetUserByIdentifier(db *sql.DB, identifier string) (*models.User, error) {
	var u models.User
	err := db.QueryRow(
		`SELECT id, username, email, password, profile_picture, created_at, updated_at
		 FROM users WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)`,
		identifier,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func GetUserByID(db *sql.DB, id string) (*models.User, error) {
	var u models.User
	err := db.QueryRow(
		`SELECT id, username, email, password, profile_picture, created_at, updated_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpdateUserProfile applies the non-nil fields. Username and email are
// lower-cased on write; the unique indexes resolve concurrent collisions.
func UpdateUserProfile(db *sql.DB, id string, username, email, passwordHash *string) (*models.User, error) {
	set := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	if username != nil {
		args = append(args, *username)
		set = append(set, fmt.Sprintf("username = LOWER($%d)", len(args)))
	}
	if email != nil {
		args = append(args, *email)
		set = append(set, fmt.Sprintf("email = LOWER($%d)", len(args)))
	}
	if passwordHash != nil {
		args = append(args, *passwordHash)
		set = append(set, fmt.Sprintf("password = $%d", len(args)))
	}

	var u models.User
	query := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE id = $1
		 RETURNING id, username, email, profile_picture, created_at, updated_at`
	err := db.QueryRow(query, args...).Scan(
		&u.ID, &u.Username, &u.Email, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		if err = translateUnique(err); err == ErrDuplicateUsername || err == ErrDuplicateEmail {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &u, nil
}

func SetProfilePicture(db *sql.DB, id, picture string) error {
	res, err := db.Exec(
		`UPDATE users SET profile_picture = $1, updated_at = NOW() WHERE id = $2`,
		picture, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set profile picture: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchUsers matches a case-insensitive substring against username or
// email and returns public fields only.
func SearchUsers(db *sql.DB, query string, limit int) ([]models.User, error) {
	rows, err := db.Query(
		`SELECT id, username, email, profile_picture, created_at, updated_at FROM users
		 WHERE username ILIKE $1 OR email ILIKE $1
		 ORDER BY username LIMIT $2`,
		"%"+query+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, rows.Err()
}
