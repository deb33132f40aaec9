package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fitversal/onboardchat/internal/onboarding"
)

// ProfileRepository stores serialized onboarding profiles as JSONB rows.
type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Load(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT data FROM onboarding_profiles WHERE profile_key = $1`

	var data []byte
	err := r.db.QueryRow(ctx, query, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, onboarding.ErrProfileNotFound
		}
		return nil, err
	}
	return data, nil
}

func (r *ProfileRepository) Save(ctx context.Context, key string, data []byte) error {
	query := `
		INSERT INTO onboarding_profiles (profile_key, data)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (profile_key)
		DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, key, string(data))
	return err
}
