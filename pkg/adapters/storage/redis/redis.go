package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/domain"
)

// Store implements the canvas store on Redis. Projects are plain JSON
// keys; artifacts, connections and groups are hashes keyed by record id
// so repeated saves overwrite instead of duplicating.
type Store struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStore creates a new Redis-backed store.
func NewStore(client *redis.Client, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
	}
}

// CreateProject persists a new project.
func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	key := projectKey(p.ID)

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if !ok {
		return fmt.Errorf("project already exists: %s", p.ID)
	}

	s.logger.Debug("project created", zap.String("project_id", p.ID))
	return nil
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	data, err := s.client.Get(ctx, projectKey(projectID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("project not found: %s", projectID)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project: %w", err)
	}
	return &p, nil
}

// UpdateProject applies a partial update to a project.
func (s *Store) UpdateProject(ctx context.Context, projectID string, updates map[string]any) error {
	p, err := s.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	if v, ok := updates["title"].(string); ok {
		p.Title = v
	}
	if v, ok := updates["description"].(string); ok {
		p.Description = v
	}
	if v, ok := updates["phase"].(string); ok {
		p.Phase = v
	}
	p.UpdatedAt = time.Now()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := s.client.Set(ctx, projectKey(projectID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// GetArtifacts returns a project's artifacts, optionally filtered by
// phase, ordered by creation time.
func (s *Store) GetArtifacts(ctx context.Context, projectID, phase string) ([]domain.Artifact, error) {
	values, err := s.client.HVals(ctx, artifactsKey(projectID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	artifacts := make([]domain.Artifact, 0, len(values))
	for _, v := range values {
		var a domain.Artifact
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			s.logger.Warn("skipping unreadable artifact",
				zap.String("project_id", projectID),
				zap.Error(err))
			continue
		}
		if phase != "" && a.Phase != phase {
			continue
		}
		artifacts = append(artifacts, a)
	}

	sortArtifacts(artifacts)
	return artifacts, nil
}

// SaveArtifacts writes artifacts into the per-project hash. Saving the
// same artifact twice overwrites the field.
func (s *Store) SaveArtifacts(ctx context.Context, artifacts []domain.Artifact) error {
	byProject := make(map[string]map[string]any)
	for _, a := range artifacts {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal artifact %s: %w", a.ID, err)
		}
		m, ok := byProject[a.ProjectID]
		if !ok {
			m = make(map[string]any)
			byProject[a.ProjectID] = m
		}
		m[a.ID] = data
	}

	for projectID, fields := range byProject {
		if err := s.client.HSet(ctx, artifactsKey(projectID), fields).Err(); err != nil {
			return fmt.Errorf("failed to save artifacts: %w", err)
		}
	}
	return nil
}

// SaveConnections writes connections into the per-project hash.
func (s *Store) SaveConnections(ctx context.Context, connections []domain.Connection) error {
	byProject := make(map[string]map[string]any)
	for _, c := range connections {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal connection %s: %w", c.ID, err)
		}
		m, ok := byProject[c.ProjectID]
		if !ok {
			m = make(map[string]any)
			byProject[c.ProjectID] = m
		}
		// Endpoint-based field so re-proposing the same edge under a new
		// id stays a single record.
		m[c.FromArtifactID+":"+c.ToArtifactID+":"+c.Type] = data
	}

	for projectID, fields := range byProject {
		if err := s.client.HSet(ctx, connectionsKey(projectID), fields).Err(); err != nil {
			return fmt.Errorf("failed to save connections: %w", err)
		}
	}
	return nil
}

// SaveGroups writes groups into the per-project hash.
func (s *Store) SaveGroups(ctx context.Context, groups []domain.Group) error {
	byProject := make(map[string]map[string]any)
	for _, g := range groups {
		data, err := json.Marshal(g)
		if err != nil {
			return fmt.Errorf("failed to marshal group %s: %w", g.ID, err)
		}
		m, ok := byProject[g.ProjectID]
		if !ok {
			m = make(map[string]any)
			byProject[g.ProjectID] = m
		}
		m[g.ID] = data
	}

	for projectID, fields := range byProject {
		if err := s.client.HSet(ctx, groupsKey(projectID), fields).Err(); err != nil {
			return fmt.Errorf("failed to save groups: %w", err)
		}
	}
	return nil
}

// UpdateArtifactImage attaches an image URL to an artifact. Returns
// false when the artifact is gone, which the caller treats as a
// non-error.
func (s *Store) UpdateArtifactImage(ctx context.Context, artifactID, imageURL string) (bool, error) {
	// Artifacts are keyed per project; scan the project hashes for the
	// field. Enrichment volume is low enough that SCAN is fine here.
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, artifactsKey("*"), 100).Result()
		if err != nil {
			return false, fmt.Errorf("failed to scan artifact keys: %w", err)
		}

		for _, key := range keys {
			data, err := s.client.HGet(ctx, key, artifactID).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return false, fmt.Errorf("failed to get artifact: %w", err)
			}

			var a domain.Artifact
			if err := json.Unmarshal(data, &a); err != nil {
				return false, fmt.Errorf("failed to unmarshal artifact: %w", err)
			}
			a.ImageURL = imageURL

			updated, err := json.Marshal(a)
			if err != nil {
				return false, fmt.Errorf("failed to marshal artifact: %w", err)
			}
			if err := s.client.HSet(ctx, key, artifactID, updated).Err(); err != nil {
				return false, fmt.Errorf("failed to update artifact: %w", err)
			}
			return true, nil
		}

		cursor = next
		if cursor == 0 {
			return false, nil
		}
	}
}

func sortArtifacts(artifacts []domain.Artifact) {
	sort.Slice(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAt.Equal(artifacts[j].CreatedAt) {
			return artifacts[i].ID < artifacts[j].ID
		}
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})
}

func projectKey(projectID string) string {
	return fmt.Sprintf("canvasd:project:%s", projectID)
}

func artifactsKey(projectID string) string {
	return fmt.Sprintf("canvasd:artifacts:%s", projectID)
}

func connectionsKey(projectID string) string {
	return fmt.Sprintf("canvasd:connections:%s", projectID)
}

func groupsKey(projectID string) string {
	return fmt.Sprintf("canvasd:groups:%s", projectID)
}
