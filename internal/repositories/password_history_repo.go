package repositories

import (
	"context"

	"github.com/promenade-labs/authcore/internal/database"
)

// PasswordHistoryRepository handles database operations for password history
type PasswordHistoryRepository struct {
	db *database.DB
}

// NewPasswordHistoryRepository creates a new PasswordHistoryRepository
func NewPasswordHistoryRepository(db *database.DB) *PasswordHistoryRepository {
	return &PasswordHistoryRepository{db: db}
}

// GetRecentHashes returns up to limit most recent password hashes for a user
func (r *PasswordHistoryRepository) GetRecentHashes(ctx context.Context, userID string, limit int) ([]string, error) {
	query := `
		SELECT password_hash FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}

	return hashes, rows.Err()
}

// Add records a new password hash for a user
func (r *PasswordHistoryRepository) Add(ctx context.Context, userID, hash string) error {
	query := `INSERT INTO password_history (user_id, password_hash) VALUES ($1, $2)`

	_, err := r.db.Pool.Exec(ctx, query, userID, hash)
	return database.MapPostgresError(err)
}
