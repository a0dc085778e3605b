package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/researchcanvas/canvasd/internal/domain"
)

// Store implements the canvas store with in-memory maps.
// This is for testing purposes only.
type Store struct {
	mu          sync.RWMutex
	projects    map[string]domain.Project
	artifacts   map[string]map[string]domain.Artifact // projectID -> artifactID -> artifact
	connections map[string][]domain.Connection        // projectID -> connections
	groups      map[string][]domain.Group             // projectID -> groups
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		projects:    make(map[string]domain.Project),
		artifacts:   make(map[string]map[string]domain.Artifact),
		connections: make(map[string][]domain.Connection),
		groups:      make(map[string][]domain.Group),
	}
}

func (s *Store) CreateProject(ctx context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[p.ID]; ok {
		return fmt.Errorf("project already exists: %s", p.ID)
	}
	s.projects[p.ID] = *p
	return nil
}

func (s *Store) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project not found: %s", projectID)
	}
	return &p, nil
}

func (s *Store) UpdateProject(ctx context.Context, projectID string, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found: %s", projectID)
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
	s.projects[projectID] = p
	return nil
}

func (s *Store) GetArtifacts(ctx context.Context, projectID, phase string) ([]domain.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Artifact
	for _, a := range s.artifacts[projectID] {
		if phase != "" && a.Phase != phase {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) SaveArtifacts(ctx context.Context, artifacts []domain.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range artifacts {
		m, ok := s.artifacts[a.ProjectID]
		if !ok {
			m = make(map[string]domain.Artifact)
			s.artifacts[a.ProjectID] = m
		}
		m[a.ID] = a
	}
	return nil
}

func (s *Store) SaveConnections(ctx context.Context, connections []domain.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range connections {
		if s.hasConnection(c) {
			continue
		}
		s.connections[c.ProjectID] = append(s.connections[c.ProjectID], c)
	}
	return nil
}

// hasConnection reports whether an equivalent edge is already stored.
// Caller holds s.mu.
func (s *Store) hasConnection(c domain.Connection) bool {
	for _, existing := range s.connections[c.ProjectID] {
		if existing.ID == c.ID ||
			(existing.FromArtifactID == c.FromArtifactID && existing.ToArtifactID == c.ToArtifactID && existing.Type == c.Type) {
			return true
		}
	}
	return false
}

func (s *Store) SaveGroups(ctx context.Context, groups []domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range groups {
		duplicate := false
		for _, existing := range s.groups[g.ProjectID] {
			if existing.ID == g.ID {
				duplicate = true
				break
			}
		}
		if !duplicate {
			s.groups[g.ProjectID] = append(s.groups[g.ProjectID], g)
		}
	}
	return nil
}

func (s *Store) UpdateArtifactImage(ctx context.Context, artifactID, imageURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for projectID, m := range s.artifacts {
		if a, ok := m[artifactID]; ok {
			a.ImageURL = imageURL
			s.artifacts[projectID][artifactID] = a
			return true, nil
		}
	}
	return false, nil
}
