package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
)

// TeamRepository implements team.Repository using PostgreSQL.
type TeamRepository struct {
	db *DB
}

// NewTeamRepository creates a new TeamRepository.
func NewTeamRepository(db *DB) *TeamRepository {
	return &TeamRepository{db: db}
}

const teamColumns = `id, name, parent_id, ancestors, implicit_members, requires_external_roles, requires_external_teams, created_at, updated_at`

// Create persists a new team.
func (r *TeamRepository) Create(ctx context.Context, t *team.Team) error {
	query := `
		INSERT INTO teams (` + teamColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID().String(),
		t.Name(),
		nullableID(t.ParentID()),
		pq.Array(idStrings(t.Ancestors())),
		t.HasImplicitMembers(),
		pq.Array(t.RequiresExternalRoles()),
		pq.Array(t.RequiresExternalTeams()),
		t.CreatedAt(),
		t.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	return nil
}

// GetByID retrieves a team by ID.
func (r *TeamRepository) GetByID(ctx context.Context, id shared.ID) (*team.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return r.scanTeam(r.db.QueryRowContext(ctx, query, id.String()))
}

// Update updates an existing team. The ancestors column is written as-is:
// it is frozen at creation and never recomputed here.
func (r *TeamRepository) Update(ctx context.Context, t *team.Team) error {
	query := `
		UPDATE teams
		SET name = $2, implicit_members = $3, requires_external_roles = $4, requires_external_teams = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		t.ID().String(),
		t.Name(),
		t.HasImplicitMembers(),
		pq.Array(t.RequiresExternalRoles()),
		pq.Array(t.RequiresExternalTeams()),
		t.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Delete removes a team and its membership rows.
func (r *TeamRepository) Delete(ctx context.Context, id shared.ID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE team_id = $1`, id.String()); err != nil {
			return fmt.Errorf("failed to delete team memberships: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id.String())
		if err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// List returns all teams ordered by name.
func (r *TeamRepository) List(ctx context.Context) ([]*team.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*team.Team
	for rows.Next() {
		t, err := r.scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// DistinctTeamIDsMatching returns the ids of all teams matching the filter.
func (r *TeamRepository) DistinctTeamIDsMatching(ctx context.Context, f team.Filter) ([]shared.ID, error) {
	where, args, err := compileFilter(f, teamTarget, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to compile team filter: %w", err)
	}

	query := `SELECT DISTINCT t.id FROM teams t WHERE ` + where

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query team ids: %w", err)
	}
	defer rows.Close()

	var raw []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		raw = append(raw, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return idsFromStrings(raw)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TeamRepository) scanTeam(row rowScanner) (*team.Team, error) {
	var (
		idStr         string
		name          string
		parentID      sql.NullString
		ancestors     pq.StringArray
		implicit      bool
		requiresRoles pq.StringArray
		requiresTeams pq.StringArray
		createdAt     sql.NullTime
		updatedAt     sql.NullTime
	)

	err := row.Scan(&idStr, &name, &parentID, &ancestors, &implicit, &requiresRoles, &requiresTeams, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid team id in row: %w", err)
	}

	var parent *shared.ID
	if parentID.Valid {
		p, err := shared.IDFromString(parentID.String)
		if err != nil {
			return nil, fmt.Errorf("invalid parent id in row: %w", err)
		}
		parent = &p
	}

	ancestorIDs, err := idsFromStrings(ancestors)
	if err != nil {
		return nil, err
	}

	return team.Reconstitute(
		id, name, parent, ancestorIDs, implicit,
		requiresRoles, requiresTeams,
		createdAt.Time, updatedAt.Time,
	), nil
}

func nullableID(id *shared.ID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func idStrings(ids []shared.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
