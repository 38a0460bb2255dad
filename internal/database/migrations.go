package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS families (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		owner_id UUID NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		pin_code CHAR(6) NOT NULL,
		max_members INTEGER NOT NULL DEFAULT 6 CHECK (max_members > 0),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS family_members (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		family_id UUID NOT NULL REFERENCES families(id) ON DELETE CASCADE,
		user_id UUID NOT NULL,
		role VARCHAR(20) NOT NULL DEFAULT 'member',
		joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(family_id, user_id)
	)`,

	`CREATE TABLE IF NOT EXISTS family_invitations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		family_id UUID NOT NULL REFERENCES families(id) ON DELETE CASCADE,
		token VARCHAR(64) NOT NULL UNIQUE,
		invited_email VARCHAR(255) NOT NULL,
		invited_by UUID NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		failed_attempts INTEGER NOT NULL DEFAULT 0 CHECK (failed_attempts >= 0),
		is_locked BOOLEAN NOT NULL DEFAULT FALSE,
		locked_until TIMESTAMP WITH TIME ZONE,
		accepted_by UUID,
		accepted_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		CHECK (NOT is_locked OR locked_until IS NOT NULL)
	)`,

	`CREATE TABLE IF NOT EXISTS game_locks (
		family_id UUID NOT NULL REFERENCES families(id) ON DELETE CASCADE,
		game_id VARCHAR(255) NOT NULL,
		locked_by UUID NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		locked_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (family_id, game_id)
	)`,

	`CREATE TABLE IF NOT EXISTS family_audit_logs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		family_id UUID,
		user_id UUID,
		action_type VARCHAR(64) NOT NULL,
		action_details JSONB NOT NULL DEFAULT '{}',
		ip_address VARCHAR(64),
		user_agent TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_family_members_family_id ON family_members(family_id)`,
	`CREATE INDEX IF NOT EXISTS idx_family_members_user_id ON family_members(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_family_invitations_family_id ON family_invitations(family_id)`,
	`CREATE INDEX IF NOT EXISTS idx_family_invitations_pending ON family_invitations(expires_at) WHERE status = 'pending'`,
	`CREATE INDEX IF NOT EXISTS idx_game_locks_expires_at ON game_locks(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_family_audit_logs_family_id ON family_audit_logs(family_id)`,

	// Increments the failure counter and applies the lockout in one statement.
	// Concurrent callers serialize on the row lock taken by UPDATE, so exactly
	// one of them observes the threshold crossing. A failure that lands during
	// an active cool-down never moves locked_until. p_now lets the service pass
	// its own clock; it defaults to the database time.
	`CREATE OR REPLACE FUNCTION register_invitation_failure(
		p_invitation_id UUID,
		p_max_attempts INTEGER,
		p_lock_minutes INTEGER,
		p_now TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	) RETURNS TABLE(failed_attempts INTEGER, is_locked BOOLEAN, locked_until TIMESTAMP WITH TIME ZONE)
	LANGUAGE plpgsql AS $$
	#variable_conflict use_column
	BEGIN
		RETURN QUERY
		UPDATE family_invitations fi SET
			failed_attempts = fi.failed_attempts + 1,
			is_locked = CASE WHEN fi.failed_attempts + 1 >= p_max_attempts THEN TRUE ELSE fi.is_locked END,
			locked_until = CASE
				WHEN fi.failed_attempts + 1 >= p_max_attempts
					AND NOT (fi.is_locked AND COALESCE(fi.locked_until > p_now, FALSE))
				THEN p_now + make_interval(mins => p_lock_minutes)
				ELSE fi.locked_until
			END
		WHERE fi.id = p_invitation_id
		RETURNING fi.failed_attempts, fi.is_locked, fi.locked_until;
	END
	$$`,

	// Claims a game lease when the key is free, expired or already held by the
	// caller. The upsert locks the conflicting row even when the WHERE clause
	// rejects the update, so the follow-up read reports a stable holder.
	`CREATE OR REPLACE FUNCTION claim_game_lock(
		p_family_id UUID,
		p_game_id VARCHAR,
		p_user_id UUID,
		p_lease_minutes INTEGER,
		p_now TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	) RETURNS TABLE(acquired BOOLEAN, locked_by UUID, expires_at TIMESTAMP WITH TIME ZONE)
	LANGUAGE plpgsql AS $$
	#variable_conflict use_column
	DECLARE
		v_locked_by UUID;
		v_expires_at TIMESTAMP WITH TIME ZONE;
	BEGIN
		INSERT INTO game_locks AS gl (family_id, game_id, locked_by, expires_at, locked_at)
		VALUES (p_family_id, p_game_id, p_user_id, p_now + make_interval(mins => p_lease_minutes), p_now)
		ON CONFLICT (family_id, game_id) DO UPDATE SET
			locked_by = EXCLUDED.locked_by,
			expires_at = EXCLUDED.expires_at,
			locked_at = EXCLUDED.locked_at
		WHERE gl.expires_at <= p_now OR gl.locked_by = EXCLUDED.locked_by
		RETURNING gl.locked_by, gl.expires_at INTO v_locked_by, v_expires_at;

		IF FOUND THEN
			RETURN QUERY SELECT TRUE, v_locked_by, v_expires_at;
			RETURN;
		END IF;

		RETURN QUERY
		SELECT FALSE, g.locked_by, g.expires_at
		FROM game_locks g
		WHERE g.family_id = p_family_id AND g.game_id = p_game_id;
	END
	$$`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
