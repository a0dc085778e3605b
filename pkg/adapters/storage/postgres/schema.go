package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    phase       TEXT NOT NULL DEFAULT 'research',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS artifacts (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    phase      TEXT NOT NULL,
    type       TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL DEFAULT '',
    summary    TEXT NOT NULL DEFAULT '',
    source_url TEXT NOT NULL DEFAULT '',
    importance INT NOT NULL DEFAULT 0,
    group_id   TEXT NOT NULL DEFAULT '',
    position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
    position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
    image_url  TEXT NOT NULL DEFAULT '',
    metadata   JSONB NOT NULL DEFAULT '{}',
    refs       JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS artifact_connections (
    id               TEXT PRIMARY KEY,
    project_id       TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    from_artifact_id TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    to_artifact_id   TEXT NOT NULL REFERENCES artifacts(id) ON DELETE CASCADE,
    label            TEXT NOT NULL DEFAULT '',
    connection_type  TEXT NOT NULL DEFAULT 'related',
    UNIQUE (from_artifact_id, to_artifact_id, connection_type)
);

CREATE TABLE IF NOT EXISTS artifact_groups (
    id         TEXT PRIMARY KEY,
    project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    phase      TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    color      TEXT NOT NULL DEFAULT '',
    position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
    position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
    width      DOUBLE PRECISION NOT NULL DEFAULT 0,
    height     DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_artifacts_project   ON artifacts(project_id);
CREATE INDEX IF NOT EXISTS idx_connections_project ON artifact_connections(project_id);
CREATE INDEX IF NOT EXISTS idx_groups_project      ON artifact_groups(project_id);
`

// CreateSchema creates the canvas tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the canvas tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS artifact_connections, artifact_groups, artifacts, projects CASCADE;`)
	return err
}
