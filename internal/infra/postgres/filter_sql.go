package postgres

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
)

// filterTarget maps domain filter fields onto the columns of a concrete
// query. Fields are validated against this map, so a filter can never
// inject an arbitrary column reference.
type filterTarget struct {
	columns map[string]string
	// ancestorsColumn is set when AncestorOverlapsFilter is legal here.
	ancestorsColumn string
	// membershipUserColumn is set when MembershipMatchFilter is legal
	// here; it names the user-id column the membership subquery joins on.
	membershipUserColumn string
}

// teamTarget compiles filters against the teams table.
var teamTarget = filterTarget{
	columns: map[string]string{
		team.FieldID:                    "t.id",
		team.FieldImplicitMembers:       "t.implicit_members",
		team.FieldRequiresExternalRoles: "t.requires_external_roles",
		team.FieldRequiresExternalTeams: "t.requires_external_teams",
	},
	ancestorsColumn: "t.ancestors",
}

// userTarget compiles filters against the users table.
var userTarget = filterTarget{
	columns: map[string]string{
		team.FieldID:                "u.id",
		team.FieldExternalRoles:     "u.external_roles",
		team.FieldExternalGroups:    "u.external_groups",
		team.FieldBypassAccessCheck: "u.bypass_access_check",
	},
	membershipUserColumn: "u.id",
}

// filterCompiler renders a team.Filter into a SQL boolean expression with
// positional arguments.
type filterCompiler struct {
	target filterTarget
	args   []any
	next   int
}

// compileFilter renders f for the target, numbering placeholders from
// startArg.
func compileFilter(f team.Filter, target filterTarget, startArg int) (string, []any, error) {
	c := &filterCompiler{target: target, next: startArg}
	sql, err := c.compile(f)
	if err != nil {
		return "", nil, err
	}
	return sql, c.args, nil
}

func (c *filterCompiler) placeholder(arg any) string {
	c.args = append(c.args, arg)
	p := fmt.Sprintf("$%d", c.next)
	c.next++
	return p
}

func (c *filterCompiler) column(field string) (string, error) {
	col, ok := c.target.columns[field]
	if !ok {
		return "", fmt.Errorf("filter field %q has no column in this query", field)
	}
	return col, nil
}

func (c *filterCompiler) compile(f team.Filter) (string, error) {
	switch v := f.(type) {
	case team.NothingFilter:
		return "FALSE", nil

	case team.EqFilter:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %s", col, c.placeholder(v.Value)), nil

	case team.InFilter:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		placeholders := make([]string, len(v.Values))
		for i, val := range v.Values {
			placeholders[i] = c.placeholder(val)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")), nil

	case team.ContainsAllFilter:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s @> %s", col, c.placeholder(pq.Array(v.Values))), nil

	case team.OverlapsFilter:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s && %s", col, c.placeholder(pq.Array(v.Values))), nil

	case team.ContainedByFilter:
		col, err := c.column(v.Field)
		if err != nil {
			return "", err
		}
		// The cardinality guard keeps an empty stored requirement from
		// matching vacuously.
		p := c.placeholder(pq.Array(v.Values))
		return fmt.Sprintf("(%s <@ %s AND cardinality(%s) > 0)", col, p, col), nil

	case team.AncestorOverlapsFilter:
		if c.target.ancestorsColumn == "" {
			return "", fmt.Errorf("ancestor filter is not valid in this query")
		}
		ids := make([]string, len(v.TeamIDs))
		for i, id := range v.TeamIDs {
			ids[i] = id.String()
		}
		return fmt.Sprintf("%s && %s::uuid[]", c.target.ancestorsColumn, c.placeholder(pq.Array(ids))), nil

	case team.MembershipMatchFilter:
		if c.target.membershipUserColumn == "" {
			return "", fmt.Errorf("membership filter is not valid in this query")
		}
		cond := fmt.Sprintf("tm.user_id = %s AND tm.team_id = %s",
			c.target.membershipUserColumn, c.placeholder(v.TeamID.String()))
		if len(v.Roles) > 0 {
			roles := make([]string, len(v.Roles))
			for i, r := range v.Roles {
				roles[i] = r.String()
			}
			cond += fmt.Sprintf(" AND tm.role = ANY(%s)", c.placeholder(pq.Array(roles)))
		}
		return fmt.Sprintf("EXISTS (SELECT 1 FROM team_members tm WHERE %s)", cond), nil

	case team.NotFilter:
		inner, err := c.compile(v.Inner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("NOT (%s)", inner), nil

	case team.AndFilter:
		return c.compileJunction(v.Filters, " AND ")

	case team.OrFilter:
		return c.compileJunction(v.Filters, " OR ")

	default:
		return "", fmt.Errorf("unsupported filter type %T", f)
	}
}

func (c *filterCompiler) compileJunction(filters []team.Filter, sep string) (string, error) {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		sql, err := c.compile(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// idsFromStrings parses a list of uuid strings scanned from the database.
func idsFromStrings(raw []string) ([]shared.ID, error) {
	ids := make([]shared.ID, 0, len(raw))
	for _, s := range raw {
		id, err := shared.IDFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q in row: %w", s, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
