package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createTeamRequest struct {
	Name string `validate:"required,min=2,max=100"`
	Slug string `validate:"required,slug"`
}

type addMemberRequest struct {
	UserID string `validate:"required,uuid"`
	Role   string `validate:"required,team_role"`
}

type memberSearchRequest struct {
	Types []string `validate:"dive,member_type"`
	Roles []string `validate:"dive,team_role"`
}

type settingsRequest struct {
	ImplicitStrategy string `validate:"implicit_strategy"`
}

func TestValidate_CreateTeam(t *testing.T) {
	v := New()

	t.Run("valid request", func(t *testing.T) {
		err := v.Validate(createTeamRequest{Name: "Platform", Slug: "platform"})
		assert.NoError(t, err)
	})

	t.Run("missing name", func(t *testing.T) {
		err := v.Validate(createTeamRequest{Slug: "platform"})
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		require.Len(t, verrs, 1)
		assert.Equal(t, "name", verrs[0].Field)
		assert.Equal(t, "is required", verrs[0].Message)
	})

	t.Run("invalid slug", func(t *testing.T) {
		cases := []string{"Platform", "my--team", "-team", "team-", "my team"}
		for _, slug := range cases {
			err := v.Validate(createTeamRequest{Name: "Platform", Slug: slug})
			require.Error(t, err, "slug %q should be rejected", slug)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, "slug", verrs[0].Field)
			assert.Contains(t, verrs[0].Message, "valid slug")
		}
	})

	t.Run("valid slugs", func(t *testing.T) {
		for _, slug := range []string{"my-team", "acme-corp", "team123", "a"} {
			assert.NoError(t, v.Validate(createTeamRequest{Name: "Platform", Slug: slug}), "slug %q", slug)
		}
	})
}

func TestValidate_TeamRole(t *testing.T) {
	v := New()
	userID := "b3f1c8a0-53c4-4f0e-9c60-2d3a9a3a1f11"

	t.Run("all assignable roles accepted", func(t *testing.T) {
		for _, role := range []string{"admin", "editor", "member", "viewer", "requester", "blocked"} {
			err := v.Validate(addMemberRequest{UserID: userID, Role: role})
			assert.NoError(t, err, "role %q", role)
		}
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		err := v.Validate(addMemberRequest{UserID: userID, Role: "owner"})
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		require.Len(t, verrs, 1)
		assert.Equal(t, "role", verrs[0].Field)
		assert.Contains(t, verrs[0].Message, "admin")
	})

	t.Run("invalid user id", func(t *testing.T) {
		err := v.Validate(addMemberRequest{UserID: "not-a-uuid", Role: "member"})
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "user_id", verrs[0].Field)
		assert.Equal(t, "must be a valid UUID", verrs[0].Message)
	})
}

func TestValidate_MemberSearch(t *testing.T) {
	v := New()

	t.Run("valid types and roles", func(t *testing.T) {
		err := v.Validate(memberSearchRequest{
			Types: []string{"explicit", "implicit"},
			Roles: []string{"admin", "member"},
		})
		assert.NoError(t, err)
	})

	t.Run("empty search is valid", func(t *testing.T) {
		assert.NoError(t, v.Validate(memberSearchRequest{}))
	})

	t.Run("unknown member type rejected", func(t *testing.T) {
		err := v.Validate(memberSearchRequest{Types: []string{"inherited"}})
		require.Error(t, err)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs[0].Message, "explicit, implicit")
	})
}

func TestValidate_ImplicitStrategy(t *testing.T) {
	v := New()

	for _, strategy := range []string{"", "none", "roles", "teams"} {
		assert.NoError(t, v.Validate(settingsRequest{ImplicitStrategy: strategy}), "strategy %q", strategy)
	}

	err := v.Validate(settingsRequest{ImplicitStrategy: "groups"})
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "implicit_strategy", verrs[0].Field)
	assert.Equal(t, "must be one of: none, roles, teams", verrs[0].Message)
}

func TestValidationErrors_Error(t *testing.T) {
	verrs := ValidationErrors{
		{Field: "name", Message: "is required"},
		{Field: "slug", Message: "must be a valid slug (lowercase letters, numbers, hyphens only)"},
	}
	assert.Equal(t, "name: is required; slug: must be a valid slug (lowercase letters, numbers, hyphens only)", verrs.Error())

	assert.Empty(t, ValidationErrors{}.Error())
}

func TestToSnakeCase(t *testing.T) {
	cases := map[string]string{
		"UserID":           "user_i_d",
		"Name":             "name",
		"ImplicitStrategy": "implicit_strategy",
		"slug":             "slug",
	}
	for in, want := range cases {
		assert.Equal(t, want, toSnakeCase(in), "input %q", in)
	}
}
