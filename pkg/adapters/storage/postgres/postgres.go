package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/researchcanvas/canvasd/internal/domain"
)

// Store implements the canvas store using PostgreSQL via pgx.
// All writes are upserts so repeated saves of the same records are
// harmless.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new Store backed by the given pgx connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	ct, err := s.db.Exec(ctx,
		`INSERT INTO projects (id, title, description, phase, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Title, p.Description, p.Phase, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("project already exists: %s", p.ID)
	}
	return nil
}

// GetProject fetches a project by id.
func (s *Store) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	var p domain.Project
	err := s.db.QueryRow(ctx,
		`SELECT id, title, description, phase, created_at, updated_at
		 FROM projects WHERE id = $1`, projectID,
	).Scan(&p.ID, &p.Title, &p.Description, &p.Phase, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project not found: %s", projectID)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// UpdateProject applies a partial update to a project.
func (s *Store) UpdateProject(ctx context.Context, projectID string, updates map[string]any) error {
	set := "updated_at = $2"
	args := []any{projectID, time.Now()}

	for _, col := range []string{"title", "description", "phase"} {
		if v, ok := updates[col].(string); ok {
			args = append(args, v)
			set += fmt.Sprintf(", %s = $%d", col, len(args))
		}
	}

	ct, err := s.db.Exec(ctx, `UPDATE projects SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}

// GetArtifacts returns a project's artifacts, optionally filtered by
// phase, ordered by creation time.
func (s *Store) GetArtifacts(ctx context.Context, projectID, phase string) ([]domain.Artifact, error) {
	query := `SELECT id, project_id, phase, type, title, content, summary, source_url,
	                 importance, group_id, position_x, position_y, image_url, metadata, refs, created_at
	          FROM artifacts WHERE project_id = $1`
	args := []any{projectID}
	if phase != "" {
		query += ` AND phase = $2`
		args = append(args, phase)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []domain.Artifact{}
	for rows.Next() {
		var a domain.Artifact
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.Phase, &a.Type, &a.Title, &a.Content,
			&a.Summary, &a.SourceURL, &a.Importance, &a.GroupID, &a.PositionX, &a.PositionY,
			&a.ImageURL, &a.Metadata, &a.References, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}
	return artifacts, nil
}

// SaveArtifacts upserts artifacts in one batch.
func (s *Store) SaveArtifacts(ctx context.Context, artifacts []domain.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range artifacts {
		metadata := a.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		refs := a.References
		if refs == nil {
			refs = []string{}
		}
		batch.Queue(
			`INSERT INTO artifacts (id, project_id, phase, type, title, content, summary, source_url,
			                        importance, group_id, position_x, position_y, image_url, metadata, refs, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			 ON CONFLICT (id) DO UPDATE SET
			   title = EXCLUDED.title, content = EXCLUDED.content, summary = EXCLUDED.summary,
			   importance = EXCLUDED.importance, group_id = EXCLUDED.group_id,
			   position_x = EXCLUDED.position_x, position_y = EXCLUDED.position_y`,
			a.ID, a.ProjectID, a.Phase, a.Type, a.Title, a.Content, a.Summary, a.SourceURL,
			a.Importance, a.GroupID, a.PositionX, a.PositionY, a.ImageURL, metadata, refs, a.CreatedAt,
		)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save artifacts: %w", err)
	}
	return nil
}

// SaveConnections inserts connections, skipping edges already present
// between the same endpoints.
func (s *Store) SaveConnections(ctx context.Context, connections []domain.Connection) error {
	if len(connections) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range connections {
		batch.Queue(
			`INSERT INTO artifact_connections (id, project_id, from_artifact_id, to_artifact_id, label, connection_type)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT DO NOTHING`,
			c.ID, c.ProjectID, c.FromArtifactID, c.ToArtifactID, c.Label, c.Type,
		)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save connections: %w", err)
	}
	return nil
}

// SaveGroups upserts canvas groups.
func (s *Store) SaveGroups(ctx context.Context, groups []domain.Group) error {
	if len(groups) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, g := range groups {
		batch.Queue(
			`INSERT INTO artifact_groups (id, project_id, phase, title, color, position_x, position_y, width, height)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (id) DO UPDATE SET
			   title = EXCLUDED.title, color = EXCLUDED.color,
			   position_x = EXCLUDED.position_x, position_y = EXCLUDED.position_y,
			   width = EXCLUDED.width, height = EXCLUDED.height`,
			g.ID, g.ProjectID, g.Phase, g.Title, g.Color, g.PositionX, g.PositionY, g.Width, g.Height,
		)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to save groups: %w", err)
	}
	return nil
}

// UpdateArtifactImage attaches an image URL to an artifact. Returns
// false when the artifact no longer exists.
func (s *Store) UpdateArtifactImage(ctx context.Context, artifactID, imageURL string) (bool, error) {
	ct, err := s.db.Exec(ctx,
		`UPDATE artifacts SET image_url = $1 WHERE id = $2`,
		imageURL, artifactID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update artifact image: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
