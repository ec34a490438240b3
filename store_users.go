package gatekit

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// ============================================================================
// USERS
// ============================================================================

// FindUser loads a user by external id.
func (s *BunStore) FindUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.db.NewSelect().Model(&u).Where("external_id = ?", userID).Limit(1).Scan(ctx)
	if err != nil {
		err = classify("FindUser", err)
		if IsNotFound(err) {
			return nil, userNotFound(userID)
		}
		return nil, err
	}
	return &u, nil
}

// UpsertUser creates the user on first interaction, or refreshes its profile
// fields and last activity. Active and blocked flags are left untouched on update.
func (s *BunStore) UpsertUser(ctx context.Context, profile UserProfile) (*User, error) {
	var out User
	err := s.inTx(ctx, "UpsertUser", func(ctx context.Context, tx bun.Tx) error {
		now := time.Now().UTC()
		_, err := tx.NewRaw(`
			INSERT INTO gatekit_users (external_id, username, first_name, last_name, language_code, is_active, last_activity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, TRUE, ?, ?, ?)
			ON CONFLICT (external_id) DO UPDATE SET
				username = EXCLUDED.username,
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				language_code = EXCLUDED.language_code,
				last_activity = EXCLUDED.last_activity,
				updated_at = EXCLUDED.updated_at`,
			profile.ExternalID, profile.Username, profile.FirstName, profile.LastName, profile.LanguageCode, now, now, now,
		).Exec(ctx)
		if err != nil {
			return err
		}
		return tx.NewSelect().Model(&out).Where("external_id = ?", profile.ExternalID).Limit(1).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TouchUser records activity for a known user.
func (s *BunStore) TouchUser(ctx context.Context, userID int64) error {
	return s.updateUser(ctx, "TouchUser", userID, "last_activity = current_timestamp")
}

// SetUserActive activates or deactivates a user.
func (s *BunStore) SetUserActive(ctx context.Context, userID int64, active bool) error {
	return s.updateUser(ctx, "SetUserActive", userID, "is_active = ?", active)
}

// SetUserBlocked blocks or unblocks a user.
func (s *BunStore) SetUserBlocked(ctx context.Context, userID int64, blocked bool) error {
	return s.updateUser(ctx, "SetUserBlocked", userID, "is_blocked = ?", blocked)
}

func (s *BunStore) updateUser(ctx context.Context, op string, userID int64, set string, args ...any) error {
	return s.inTx(ctx, op, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*User)(nil)).
			Set(set, args...).
			Set("updated_at = current_timestamp").
			Where("external_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if !rowsChanged(res) {
			return userNotFound(userID)
		}
		return nil
	})
}

// DeleteUser removes a user row; its role and permission associations cascade.
// Deleting an unknown user is a no-op.
func (s *BunStore) DeleteUser(ctx context.Context, userID int64) (bool, error) {
	var changed bool
	err := s.inTx(ctx, "DeleteUser", func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*User)(nil)).Where("external_id = ?", userID).Exec(ctx)
		if err != nil {
			return err
		}
		changed = rowsChanged(res)
		return nil
	})
	return changed, err
}
