package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassthroughRoleMap(t *testing.T) {
	m := PassthroughRoleMap{}
	assert.Equal(t, []string{"a", "b"}, m.MapRoles([]string{"a", "b"}))
	assert.Equal(t, []string{"g1"}, m.MapGroups([]string{"g1"}))
}

func TestStaticRoleMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rolemap.yaml")
	content := `
roles:
  idp-sec-team: [security]
  idp-platform: [platform, infra]
groups:
  "ou=backend": [eng/backend]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := LoadStaticRoleMap(path)
	require.NoError(t, err)

	t.Run("maps known claims", func(t *testing.T) {
		assert.Equal(t, []string{"security", "platform", "infra"},
			m.MapRoles([]string{"idp-sec-team", "idp-platform"}))
		assert.Equal(t, []string{"eng/backend"}, m.MapGroups([]string{"ou=backend"}))
	})

	t.Run("drops unmapped claims", func(t *testing.T) {
		assert.Empty(t, m.MapRoles([]string{"unknown"}))
	})

	t.Run("deduplicates targets", func(t *testing.T) {
		assert.Equal(t, []string{"security"},
			m.MapRoles([]string{"idp-sec-team", "idp-sec-team"}))
	})
}

func TestNewExternalRoleMapProvider(t *testing.T) {
	t.Run("passthrough by default", func(t *testing.T) {
		p, err := NewExternalRoleMapProvider("", "")
		require.NoError(t, err)
		assert.IsType(t, PassthroughRoleMap{}, p)
	})

	t.Run("static requires a file", func(t *testing.T) {
		_, err := NewExternalRoleMapProvider("static", "")
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewExternalRoleMapProvider("dynamic", "")
		assert.Error(t, err)
	})
}
