package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"openach/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{version: "1.0.0"}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in dependency order. Every statement
// is idempotent so the runner is safe to execute on startup.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	steps := []struct {
		name string
		fn   func(context.Context, *sqlx.DB) error
	}{
		{"users", createUsersTable},
		{"sessions", createSessionsTable},
		{"boards", createBoardsTable},
		{"board_permissions", createBoardPermissionsTable},
		{"board_collaborators", createBoardCollaboratorsTable},
		{"board_followers", createBoardFollowersTable},
		{"hypotheses", createHypothesesTable},
		{"evidence", createEvidenceTable},
		{"evidence_sources", createEvidenceSourcesTable},
		{"source_tags", createSourceTagsTable},
		{"analyst_source_tags", createAnalystSourceTagsTable},
		{"evaluations", createEvaluationsTable},
		{"teams", createTeamsTable},
		{"notifications", createNotificationsTable},
		{"user_settings", createUserSettingsTable},
		{"digest_status", createDigestStatusTable},
		{"project_news", createProjectNewsTable},
		{"field_history", createFieldHistoryTable},
		{"indexes", createIndexes},
		{"default_source_tags", insertDefaultSourceTags},
	}

	for _, step := range steps {
		if err := step.fn(ctx, db); err != nil {
			return errors.Wrapf(err, "failed to create %s", step.name)
		}
	}
	return nil
}

func createUsersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			email VARCHAR(254) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func createSessionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func createBoardsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS boards (
			id UUID PRIMARY KEY,
			title VARCHAR(200) NOT NULL,
			slug VARCHAR(72) NOT NULL DEFAULT '',
			description VARCHAR(255) NOT NULL,
			creator_id UUID REFERENCES users(id) ON DELETE SET NULL,
			pub_date TIMESTAMPTZ NOT NULL,
			removed BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	return err
}

func createBoardPermissionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS board_permissions (
			board_id UUID PRIMARY KEY REFERENCES boards(id) ON DELETE CASCADE,
			read_board SMALLINT NOT NULL DEFAULT 3,
			read_comments SMALLINT NOT NULL DEFAULT 3,
			add_comments SMALLINT NOT NULL DEFAULT 1,
			add_elements SMALLINT NOT NULL DEFAULT 1,
			edit_elements SMALLINT NOT NULL DEFAULT 1,
			edit_board SMALLINT NOT NULL DEFAULT 0
		)`)
	return err
}

func createBoardCollaboratorsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS board_collaborators (
			board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (board_id, user_id)
		)`)
	return err
}

func createBoardFollowersTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS board_followers (
			board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			is_creator BOOLEAN NOT NULL DEFAULT FALSE,
			is_contributor BOOLEAN NOT NULL DEFAULT FALSE,
			is_evaluator BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (board_id, user_id)
		)`)
	return err
}

func createHypothesesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hypotheses (
			id UUID PRIMARY KEY,
			board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			text VARCHAR(200) NOT NULL,
			creator_id UUID REFERENCES users(id) ON DELETE SET NULL,
			submit_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			removed BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	return err
}

func createEvidenceTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evidence (
			id UUID PRIMARY KEY,
			board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			description VARCHAR(200) NOT NULL,
			event_date DATE,
			creator_id UUID REFERENCES users(id) ON DELETE SET NULL,
			submit_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			removed BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	return err
}

func createEvidenceSourcesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evidence_sources (
			id UUID PRIMARY KEY,
			evidence_id UUID NOT NULL REFERENCES evidence(id) ON DELETE CASCADE,
			url VARCHAR(255) NOT NULL,
			title VARCHAR(255) NOT NULL DEFAULT '',
			description VARCHAR(1000) NOT NULL DEFAULT '',
			source_date DATE NOT NULL,
			uploader_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			corroborating BOOLEAN NOT NULL,
			submit_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			removed BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	return err
}

func createSourceTagsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS source_tags (
			id UUID PRIMARY KEY,
			name VARCHAR(64) NOT NULL UNIQUE,
			description VARCHAR(200) NOT NULL DEFAULT ''
		)`)
	return err
}

func createAnalystSourceTagsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analyst_source_tags (
			id UUID PRIMARY KEY,
			source_id UUID NOT NULL REFERENCES evidence_sources(id) ON DELETE CASCADE,
			tagger_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			tag_id UUID NOT NULL REFERENCES source_tags(id) ON DELETE CASCADE,
			tag_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (source_id, tagger_id, tag_id)
		)`)
	return err
}

func createEvaluationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS evaluations (
			id UUID PRIMARY KEY,
			board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			hypothesis_id UUID NOT NULL REFERENCES hypotheses(id) ON DELETE CASCADE,
			evidence_id UUID NOT NULL REFERENCES evidence(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			value SMALLINT NOT NULL DEFAULT 0,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (hypothesis_id, evidence_id, user_id)
		)`)
	return err
}

func createTeamsTable(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS teams (
			id UUID PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			description VARCHAR(1000) NOT NULL DEFAULT '',
			owner_id UUID REFERENCES users(id) ON DELETE SET NULL,
			public BOOLEAN NOT NULL DEFAULT TRUE,
			invitation_required BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS team_members (
			team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (team_id, user_id)
		)`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS team_requests (
			id UUID PRIMARY KEY,
			team_id UUID NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
			invitee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			inviter_id UUID REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func createNotificationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			actor_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			actor_name VARCHAR(150) NOT NULL DEFAULT '',
			verb VARCHAR(32) NOT NULL,
			object_desc VARCHAR(255) NOT NULL DEFAULT '',
			object_url VARCHAR(255) NOT NULL DEFAULT '',
			board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			board_title VARCHAR(200) NOT NULL DEFAULT '',
			unread BOOLEAN NOT NULL DEFAULT TRUE,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func createUserSettingsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_settings (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			digest_frequency SMALLINT NOT NULL DEFAULT 1
		)`)
	return err
}

func createDigestStatusTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS digest_status (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			last_success TIMESTAMPTZ,
			last_attempt TIMESTAMPTZ
		)`)
	return err
}

func createProjectNewsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS project_news (
			id UUID PRIMARY KEY,
			content VARCHAR(1024) NOT NULL,
			pub_date TIMESTAMPTZ NOT NULL,
			author_id UUID REFERENCES users(id) ON DELETE SET NULL
		)`)
	return err
}

func createFieldHistoryTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS field_history (
			id UUID PRIMARY KEY,
			board_id UUID NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
			object_kind VARCHAR(16) NOT NULL,
			object_id UUID NOT NULL,
			field VARCHAR(64) NOT NULL,
			old_value TEXT NOT NULL DEFAULT '',
			new_value TEXT NOT NULL DEFAULT '',
			changed_by UUID REFERENCES users(id) ON DELETE SET NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_boards_pub_date ON boards (pub_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_boards_title ON boards (title)`,
		`CREATE INDEX IF NOT EXISTS idx_hypotheses_board ON hypotheses (board_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_board ON evidence (board_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sources_evidence ON evidence_sources (evidence_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_board ON evaluations (board_id)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_user ON evaluations (user_id, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, unread, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_field_history_board ON field_history (board_id, changed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions (expires_at)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// insertDefaultSourceTags seeds the analyst tag vocabulary
func insertDefaultSourceTags(ctx context.Context, db *sqlx.DB) error {
	tags := []struct {
		name, desc string
	}{
		{"Reliable", "The source has a track record of accurate reporting"},
		{"Unreliable", "The source has a track record of inaccurate reporting"},
		{"Primary", "The source directly witnessed or documented the event"},
		{"Disputed", "Other sources contest this source's account"},
	}
	for _, tag := range tags {
		_, err := db.ExecContext(ctx, `
			INSERT INTO source_tags (id, name, description)
			VALUES (gen_random_uuid(), $1, $2)
			ON CONFLICT (name) DO NOTHING`, tag.name, tag.desc)
		if err != nil {
			return err
		}
	}
	return nil
}
