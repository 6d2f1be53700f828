package postgres

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
)

func TestCompileFilterTeamTarget(t *testing.T) {
	t.Run("nothing renders false with no args", func(t *testing.T) {
		sql, args, err := compileFilter(team.Nothing(), teamTarget, 1)
		require.NoError(t, err)
		assert.Equal(t, "FALSE", sql)
		assert.Empty(t, args)
	})

	t.Run("implicit roles predicate", func(t *testing.T) {
		f := team.And(
			team.Eq(team.FieldImplicitMembers, true),
			team.ContainedBy(team.FieldRequiresExternalRoles, []string{"sre", "dev"}),
		)

		sql, args, err := compileFilter(f, teamTarget, 1)
		require.NoError(t, err)
		assert.Equal(t,
			"(t.implicit_members = $1 AND (t.requires_external_roles <@ $2 AND cardinality(t.requires_external_roles) > 0))",
			sql)
		require.Len(t, args, 2)
		assert.Equal(t, true, args[0])
		assert.Equal(t, pq.Array([]string{"sre", "dev"}), args[1])
	})

	t.Run("ancestor overlap casts to uuid array", func(t *testing.T) {
		id := shared.NewID()
		sql, args, err := compileFilter(team.AncestorsOverlap([]shared.ID{id}), teamTarget, 3)
		require.NoError(t, err)
		assert.Equal(t, "t.ancestors && $3::uuid[]", sql)
		assert.Equal(t, []any{pq.Array([]string{id.String()})}, args)
	})

	t.Run("membership filter is rejected against teams", func(t *testing.T) {
		_, _, err := compileFilter(team.HasMembership(shared.NewID()), teamTarget, 1)
		assert.Error(t, err)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, _, err := compileFilter(team.Eq("secret_column", 1), teamTarget, 1)
		assert.Error(t, err)
	})
}

func TestCompileFilterUserTarget(t *testing.T) {
	teamID := shared.NewID()

	t.Run("implicit member predicate with blocked exclusion", func(t *testing.T) {
		f := team.And(
			team.ContainsAll(team.FieldExternalRoles, []string{"sec"}),
			team.Not(team.HasMembership(teamID, team.RoleBlocked)),
		)

		sql, args, err := compileFilter(f, userTarget, 1)
		require.NoError(t, err)
		assert.Equal(t,
			"(u.external_roles @> $1 AND NOT (EXISTS (SELECT 1 FROM team_members tm WHERE tm.user_id = u.id AND tm.team_id = $2 AND tm.role = ANY($3))))",
			sql)
		require.Len(t, args, 3)
		assert.Equal(t, pq.Array([]string{"sec"}), args[0])
		assert.Equal(t, teamID.String(), args[1])
		assert.Equal(t, pq.Array([]string{"blocked"}), args[2])
	})

	t.Run("membership without roles omits the role clause", func(t *testing.T) {
		sql, args, err := compileFilter(team.HasMembership(teamID), userTarget, 1)
		require.NoError(t, err)
		assert.Equal(t,
			"EXISTS (SELECT 1 FROM team_members tm WHERE tm.user_id = u.id AND tm.team_id = $1)",
			sql)
		assert.Equal(t, []any{teamID.String()}, args)
	})

	t.Run("bypass-or-groups branch", func(t *testing.T) {
		f := team.Or(
			team.Eq(team.FieldBypassAccessCheck, true),
			team.Overlaps(team.FieldExternalGroups, []string{"g1", "g2"}),
		)

		sql, args, err := compileFilter(f, userTarget, 1)
		require.NoError(t, err)
		assert.Equal(t, "(u.bypass_access_check = $1 OR u.external_groups && $2)", sql)
		require.Len(t, args, 2)
	})

	t.Run("ancestor filter is rejected against users", func(t *testing.T) {
		_, _, err := compileFilter(team.AncestorsOverlap([]shared.ID{teamID}), userTarget, 1)
		assert.Error(t, err)
	})

	t.Run("placeholder numbering continues from startArg", func(t *testing.T) {
		f := team.In(team.FieldID, "a", "b")
		sql, args, err := compileFilter(f, userTarget, 5)
		require.NoError(t, err)
		assert.Equal(t, "u.id IN ($5, $6)", sql)
		assert.Len(t, args, 2)
	})
}
