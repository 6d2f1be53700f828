package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
)

// UserRepository implements user.Repository using PostgreSQL.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.email, u.name, u.external_roles, u.external_groups, u.bypass_access_check, u.last_login_at, u.created_at, u.updated_at`

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, email, name, external_roles, external_groups, bypass_access_check, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.Email(),
		u.Name(),
		pq.Array(u.ExternalRoles()),
		pq.Array(u.ExternalGroups()),
		u.BypassAccessCheck(),
		nullTime(u.LastLoginAt()),
		u.CreatedAt(),
		u.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID with memberships loaded.
func (r *UserRepository) GetByID(ctx context.Context, id shared.ID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	return r.getOne(ctx, query, id.String())
}

// GetByEmail retrieves a user by email with memberships loaded.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE lower(u.email) = lower($1)`
	return r.getOne(ctx, query, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	u, err := r.scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, err
	}

	memberships, err := r.loadMemberships(ctx, u.ID())
	if err != nil {
		return nil, err
	}
	u.SetMemberships(memberships)
	return u, nil
}

// Update updates an existing user. Memberships are managed separately via
// UpdateMemberships and the conditional writes.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET email = $2, name = $3, external_roles = $4, external_groups = $5, bypass_access_check = $6, last_login_at = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		u.ID().String(),
		u.Email(),
		u.Name(),
		pq.Array(u.ExternalRoles()),
		pq.Array(u.ExternalGroups()),
		u.BypassAccessCheck(),
		nullTime(u.LastLoginAt()),
		u.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// Delete removes a user and their membership rows.
func (r *UserRepository) Delete(ctx context.Context, id shared.ID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE user_id = $1`, id.String()); err != nil {
			return fmt.Errorf("failed to delete user memberships: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.String())
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// ListIDs returns all user ids.
func (r *UserRepository) ListIDs(ctx context.Context) ([]shared.ID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var raw []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		raw = append(raw, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return idsFromStrings(raw)
}

// UpdateMemberships atomically replaces a user's membership list.
func (r *UserRepository) UpdateMemberships(ctx context.Context, userID shared.ID, memberships []team.Membership) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM team_members WHERE user_id = $1`, userID.String()); err != nil {
			return fmt.Errorf("failed to clear memberships: %w", err)
		}

		for _, m := range memberships {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO team_members (user_id, team_id, role) VALUES ($1, $2, $3)`,
				userID.String(), m.TeamID.String(), m.Role.String(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert membership: %w", err)
			}
		}
		return nil
	})
}

// FindUsersByTeamRole returns all users holding the explicit role on the
// team, with their full membership lists loaded.
func (r *UserRepository) FindUsersByTeamRole(ctx context.Context, teamID shared.ID, role team.Role) ([]*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN team_members tm ON tm.user_id = u.id
		WHERE tm.team_id = $1 AND tm.role = $2
		ORDER BY u.email
	`

	users, err := r.queryUsers(ctx, query, teamID.String(), role.String())
	if err != nil {
		return nil, err
	}
	if err := r.attachMemberships(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// SearchMembers returns users matching the filter, paginated, with the
// total match count.
func (r *UserRepository) SearchMembers(ctx context.Context, f team.Filter, limit, offset int) ([]*user.User, int, error) {
	where, args, err := compileFilter(f, userTarget, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to compile member filter: %w", err)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users u WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM users u WHERE %s ORDER BY u.name, u.email LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)+1, len(args)+2,
	)
	users, err := r.queryUsers(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachMemberships(ctx, users); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// RemoveMembership deletes a user's membership on a team. An admin row is
// only deleted when another explicit admin remains; the admin count is
// re-evaluated inside the statement, which closes the check-then-act race
// between two concurrent removals.
func (r *UserRepository) RemoveMembership(ctx context.Context, userID, teamID shared.ID) (bool, error) {
	query := `
		DELETE FROM team_members tm
		WHERE tm.user_id = $1 AND tm.team_id = $2
		  AND (tm.role <> 'admin' OR EXISTS (
			SELECT 1 FROM team_members other
			WHERE other.team_id = $2 AND other.role = 'admin' AND other.user_id <> $1
		  ))
	`

	result, err := r.db.ExecContext(ctx, query, userID.String(), teamID.String())
	if err != nil {
		return false, fmt.Errorf("failed to remove membership: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// SetMembershipRole upserts a user's role on a team. Demoting an admin
// only proceeds when another explicit admin remains, evaluated inside the
// statement.
func (r *UserRepository) SetMembershipRole(ctx context.Context, userID, teamID shared.ID, role team.Role) (bool, error) {
	query := `
		INSERT INTO team_members (user_id, team_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, team_id) DO UPDATE SET role = EXCLUDED.role
		WHERE team_members.role <> 'admin' OR EXCLUDED.role = 'admin' OR EXISTS (
			SELECT 1 FROM team_members other
			WHERE other.team_id = EXCLUDED.team_id
			  AND other.role = 'admin'
			  AND other.user_id <> EXCLUDED.user_id
		)
	`

	result, err := r.db.ExecContext(ctx, query, userID.String(), teamID.String(), role.String())
	if err != nil {
		return false, fmt.Errorf("failed to set membership role: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*user.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) loadMemberships(ctx context.Context, userID shared.ID) ([]team.Membership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT team_id, role FROM team_members WHERE user_id = $1 ORDER BY team_id`,
		userID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}
	defer rows.Close()

	var memberships []team.Membership
	for rows.Next() {
		var teamIDStr, roleStr string
		if err := rows.Scan(&teamIDStr, &roleStr); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		teamID, err := shared.IDFromString(teamIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid team id in membership row: %w", err)
		}
		memberships = append(memberships, team.Membership{TeamID: teamID, Role: team.Role(roleStr)})
	}
	return memberships, rows.Err()
}

func (r *UserRepository) attachMemberships(ctx context.Context, users []*user.User) error {
	for _, u := range users {
		memberships, err := r.loadMemberships(ctx, u.ID())
		if err != nil {
			return err
		}
		u.SetMemberships(memberships)
	}
	return nil
}

func (r *UserRepository) scanUser(row rowScanner) (*user.User, error) {
	var (
		idStr       string
		email       string
		name        string
		extRoles    pq.StringArray
		extGroups   pq.StringArray
		bypass      bool
		lastLoginAt sql.NullTime
		createdAt   sql.NullTime
		updatedAt   sql.NullTime
	)

	err := row.Scan(&idStr, &email, &name, &extRoles, &extGroups, &bypass, &lastLoginAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in row: %w", err)
	}

	return user.Reconstitute(
		id, email, name, nil,
		extRoles, extGroups, bypass,
		nullTimeValue(lastLoginAt),
		createdAt.Time, updatedAt.Time,
	), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeValue(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
