package repo

import (
	"context"
	"fmt"

	"github.com/griiettner/eventos-finais/internal/models"
)

// profileRowID is the fixed key of the single-row user_profile table.
const profileRowID = 1

// RefreshProfile replaces the cached identity with fresh claims from the
// identity provider. The admin flag is preserved; it is managed locally.
func (r *Repo) RefreshProfile(ctx context.Context, p models.UserProfile) error {
	verified := 0
	if p.IsVerified {
		verified = 1
	}
	_, err := r.store.Exec(ctx, `
		INSERT INTO user_profile (id, username, email, is_verified)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			email = excluded.email,
			is_verified = excluded.is_verified`,
		profileRowID, p.Username, p.Email, verified,
	)
	if err != nil {
		return fmt.Errorf("failed to refresh profile: %w", err)
	}
	return nil
}

// Profile returns the cached identity, or nil before the first session
// init.
func (r *Repo) Profile(ctx context.Context) (*models.UserProfile, error) {
	row, err := r.store.Get(ctx, "SELECT * FROM user_profile WHERE id = ?", profileRowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return &models.UserProfile{
		Username:   fieldString(row, "username"),
		Email:      fieldString(row, "email"),
		IsVerified: fieldBool(row, "is_verified"),
		IsAdmin:    fieldBool(row, "is_admin"),
	}, nil
}

// SetAdmin grants or revokes the local admin flag for a profile by email.
func (r *Repo) SetAdmin(ctx context.Context, email string, admin bool) error {
	flag := 0
	if admin {
		flag = 1
	}
	affected, err := r.store.Exec(ctx,
		"UPDATE user_profile SET is_admin = ? WHERE email = ?", flag, email,
	)
	if err != nil {
		return fmt.Errorf("failed to set admin=%v for %s: %w", admin, email, err)
	}
	if affected == 0 {
		return fmt.Errorf("no profile with email %s", email)
	}
	return nil
}

// IsAdmin reports whether the profile with the given email holds the
// admin flag.
func (r *Repo) IsAdmin(ctx context.Context, email string) (bool, error) {
	row, err := r.store.Get(ctx,
		"SELECT is_admin FROM user_profile WHERE email = ?", email,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check admin for %s: %w", email, err)
	}
	if row == nil {
		return false, nil
	}
	return fieldBool(row, "is_admin"), nil
}
