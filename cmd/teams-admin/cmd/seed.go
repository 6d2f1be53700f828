package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
)

var flagSeedFile string

// seedFixture is the root of a seed file.
type seedFixture struct {
	Teams []seedTeam `yaml:"teams"`
	Users []seedUser `yaml:"users"`
}

type seedTeam struct {
	Name                  string   `yaml:"name"`
	Parent                string   `yaml:"parent"`
	ImplicitMembers       bool     `yaml:"implicit_members"`
	RequiredExternalRoles []string `yaml:"required_external_roles"`
	RequiredExternalTeams []string `yaml:"required_external_teams"`
}

type seedUser struct {
	Email       string           `yaml:"email"`
	Name        string           `yaml:"name"`
	Memberships []seedMembership `yaml:"memberships"`
}

type seedMembership struct {
	Team string `yaml:"team"`
	Role string `yaml:"role"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed teams and users from a fixture file",
	Long: `Seed teams and users from a YAML fixture file.

Teams are created before users so memberships can reference teams by
name. Parent teams must appear before their subteams.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if flagSeedFile == "" {
			return fmt.Errorf("a fixture file is required (-f)")
		}

		data, err := os.ReadFile(flagSeedFile)
		if err != nil {
			return fmt.Errorf("failed to read fixture file: %w", err)
		}
		var fixture seedFixture
		if err := yaml.Unmarshal(data, &fixture); err != nil {
			return fmt.Errorf("failed to parse fixture file: %w", err)
		}

		e, closeFn, err := openEnv()
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()

		teamsByName, err := seedTeams(ctx, e, fixture.Teams)
		if err != nil {
			return err
		}
		created, err := seedUsers(ctx, e, fixture.Users, teamsByName)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d teams, %d users\n", len(teamsByName), created)
		return nil
	},
}

func seedTeams(ctx context.Context, e *env, fixtures []seedTeam) (map[string]*team.Team, error) {
	byName := make(map[string]*team.Team, len(fixtures))
	for _, f := range fixtures {
		var parent *team.Team
		if f.Parent != "" {
			p, ok := byName[f.Parent]
			if !ok {
				return nil, fmt.Errorf("team %q references unknown parent %q", f.Name, f.Parent)
			}
			parent = p
		}

		t, err := team.NewTeam(f.Name, parent)
		if err != nil {
			return nil, fmt.Errorf("team %q: %w", f.Name, err)
		}
		t.SetImplicitMembers(f.ImplicitMembers)
		if len(f.RequiredExternalRoles) > 0 {
			t.SetRequiredExternalRoles(f.RequiredExternalRoles)
		}
		if len(f.RequiredExternalTeams) > 0 {
			t.SetRequiredExternalTeams(f.RequiredExternalTeams)
		}

		if err := e.teams.Create(ctx, t); err != nil {
			return nil, fmt.Errorf("failed to create team %q: %w", f.Name, err)
		}
		byName[f.Name] = t
	}
	return byName, nil
}

func seedUsers(ctx context.Context, e *env, fixtures []seedUser, teamsByName map[string]*team.Team) (int, error) {
	created := 0
	for _, f := range fixtures {
		u, err := user.New(f.Email, f.Name)
		if err != nil {
			return created, fmt.Errorf("user %q: %w", f.Email, err)
		}

		memberships := make([]team.Membership, 0, len(f.Memberships))
		for _, m := range f.Memberships {
			t, ok := teamsByName[m.Team]
			if !ok {
				return created, fmt.Errorf("user %q references unknown team %q", f.Email, m.Team)
			}
			role, ok := team.ParseRole(m.Role)
			if !ok {
				return created, shared.Invalid("user %q: unknown role %q", f.Email, m.Role)
			}
			memberships = append(memberships, team.Membership{TeamID: t.ID(), Role: role})
		}
		if err := e.users.Create(ctx, u); err != nil {
			return created, fmt.Errorf("failed to create user %q: %w", f.Email, err)
		}
		if len(memberships) > 0 {
			if err := e.users.UpdateMemberships(ctx, u.ID(), memberships); err != nil {
				return created, fmt.Errorf("failed to store memberships for %q: %w", f.Email, err)
			}
		}
		created++
	}
	return created, nil
}

func init() {
	seedCmd.Flags().StringVarP(&flagSeedFile, "file", "f", "", "Fixture file to load")
}
