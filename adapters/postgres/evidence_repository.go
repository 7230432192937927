package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// EvidenceRepositoryImpl implements EvidenceRepository for PostgreSQL
type EvidenceRepositoryImpl struct {
	db *sqlx.DB
}

// NewEvidenceRepository creates a new PostgreSQL evidence repository
func NewEvidenceRepository(db *sqlx.DB) ports.EvidenceRepository {
	return &EvidenceRepositoryImpl{db: db}
}

// CreateEvidence adds a piece of evidence to a board
func (r *EvidenceRepositoryImpl) CreateEvidence(ctx context.Context, evidence *models.Evidence) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evidence (id, board_id, description, event_date, creator_id, submit_date, removed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		evidence.ID, evidence.BoardID, evidence.Description, evidence.EventDate,
		evidence.CreatorID, evidence.SubmitDate, evidence.Removed)
	return err
}

// GetEvidence retrieves evidence by ID, including removed pieces
func (r *EvidenceRepositoryImpl) GetEvidence(ctx context.Context, id uuid.UUID) (*models.Evidence, error) {
	var evidence models.Evidence
	err := r.db.GetContext(ctx, &evidence, `
		SELECT id, board_id, description, event_date, creator_id, submit_date, removed
		FROM evidence
		WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("evidence")
	}
	if err != nil {
		return nil, err
	}
	return &evidence, nil
}

// UpdateEvidence persists changes to description, event date, and removed
func (r *EvidenceRepositoryImpl) UpdateEvidence(ctx context.Context, evidence *models.Evidence) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE evidence SET description = $2, event_date = $3, removed = $4
		WHERE id = $1`,
		evidence.ID, evidence.Description, evidence.EventDate, evidence.Removed)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return errors.NotFound("evidence")
	}
	return err
}

// ListForBoard returns the board's evidence in submission order
func (r *EvidenceRepositoryImpl) ListForBoard(ctx context.Context, boardID uuid.UUID, includeRemoved bool) ([]*models.Evidence, error) {
	query := `
		SELECT id, board_id, description, event_date, creator_id, submit_date, removed
		FROM evidence
		WHERE board_id = $1`
	if !includeRemoved {
		query += ` AND removed = FALSE`
	}
	query += ` ORDER BY submit_date ASC`

	var evidence []*models.Evidence
	if err := r.db.SelectContext(ctx, &evidence, query, boardID); err != nil {
		return nil, err
	}
	return evidence, nil
}

// CreateSource adds a source to a piece of evidence
func (r *EvidenceRepositoryImpl) CreateSource(ctx context.Context, source *models.EvidenceSource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evidence_sources (id, evidence_id, url, title, description, source_date, uploader_id, corroborating, submit_date, removed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		source.ID, source.EvidenceID, source.URL, source.Title, source.Description,
		source.SourceDate, source.UploaderID, source.Corroborating, source.SubmitDate, source.Removed)
	return err
}

// GetSource retrieves a source by ID
func (r *EvidenceRepositoryImpl) GetSource(ctx context.Context, id uuid.UUID) (*models.EvidenceSource, error) {
	var source models.EvidenceSource
	err := r.db.GetContext(ctx, &source, `
		SELECT id, evidence_id, url, title, description, source_date, uploader_id, corroborating, submit_date, removed
		FROM evidence_sources
		WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("evidence source")
	}
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// UpdateSource persists changes to a source
func (r *EvidenceRepositoryImpl) UpdateSource(ctx context.Context, source *models.EvidenceSource) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE evidence_sources
		SET url = $2, title = $3, description = $4, source_date = $5, corroborating = $6, removed = $7
		WHERE id = $1`,
		source.ID, source.URL, source.Title, source.Description,
		source.SourceDate, source.Corroborating, source.Removed)
	return err
}

// ListSources returns the non-removed sources for a piece of evidence, most
// recent source date first
func (r *EvidenceRepositoryImpl) ListSources(ctx context.Context, evidenceID uuid.UUID) ([]*models.EvidenceSource, error) {
	var sources []*models.EvidenceSource
	err := r.db.SelectContext(ctx, &sources, `
		SELECT id, evidence_id, url, title, description, source_date, uploader_id, corroborating, submit_date, removed
		FROM evidence_sources
		WHERE evidence_id = $1 AND removed = FALSE
		ORDER BY source_date DESC`, evidenceID)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

// SourceTagRepositoryImpl implements SourceTagRepository for PostgreSQL
type SourceTagRepositoryImpl struct {
	db *sqlx.DB
}

// NewSourceTagRepository creates a new PostgreSQL source tag repository
func NewSourceTagRepository(db *sqlx.DB) ports.SourceTagRepository {
	return &SourceTagRepositoryImpl{db: db}
}

// ListTags returns the available source tags
func (r *SourceTagRepositoryImpl) ListTags(ctx context.Context) ([]*models.SourceTag, error) {
	var tags []*models.SourceTag
	err := r.db.SelectContext(ctx, &tags, `
		SELECT id, name, description FROM source_tags ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// GetTagByName retrieves a tag by its unique name
func (r *SourceTagRepositoryImpl) GetTagByName(ctx context.Context, name string) (*models.SourceTag, error) {
	var tag models.SourceTag
	err := r.db.GetContext(ctx, &tag, `
		SELECT id, name, description FROM source_tags WHERE name = $1`, name)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("source tag")
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTaggings returns all analyst taggings for the given sources
func (r *SourceTagRepositoryImpl) ListTaggings(ctx context.Context, sourceIDs []uuid.UUID) ([]*models.AnalystSourceTag, error) {
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	var taggings []*models.AnalystSourceTag
	err := r.db.SelectContext(ctx, &taggings, `
		SELECT id, source_id, tagger_id, tag_id, tag_date
		FROM analyst_source_tags
		WHERE source_id = ANY($1)
		ORDER BY tag_date ASC`, pq.Array(sourceIDs))
	if err != nil {
		return nil, err
	}
	return taggings, nil
}

// ToggleTagging adds the analyst's tagging if absent, removes it if present
func (r *SourceTagRepositoryImpl) ToggleTagging(ctx context.Context, sourceID, taggerID, tagID uuid.UUID) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM analyst_source_tags
		WHERE source_id = $1 AND tagger_id = $2 AND tag_id = $3`,
		sourceID, taggerID, tagID)
	if err != nil {
		return false, err
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if deleted > 0 {
		return false, nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analyst_source_tags (id, source_id, tagger_id, tag_id, tag_date)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (source_id, tagger_id, tag_id) DO NOTHING`,
		uuid.New(), sourceID, taggerID, tagID)
	if err != nil {
		return false, err
	}
	return true, nil
}
