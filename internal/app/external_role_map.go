package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ExternalRoleMapProvider maps identity-provider claim values to the
// external role and group identifiers the team domain matches against.
type ExternalRoleMapProvider interface {
	MapRoles(claims []string) []string
	MapGroups(claims []string) []string
}

// NewExternalRoleMapProvider builds the provider selected by name:
// "passthrough" uses claim values as-is, "static" maps them through a YAML
// file. Providers are compiled in; there is no dynamic loading.
func NewExternalRoleMapProvider(name, mapFile string) (ExternalRoleMapProvider, error) {
	switch name {
	case "", "passthrough":
		return PassthroughRoleMap{}, nil
	case "static":
		return LoadStaticRoleMap(mapFile)
	default:
		return nil, fmt.Errorf("unknown external role provider: %s", name)
	}
}

// PassthroughRoleMap uses identity-provider claim values unchanged.
type PassthroughRoleMap struct{}

// MapRoles returns the claims unchanged.
func (PassthroughRoleMap) MapRoles(claims []string) []string { return claims }

// MapGroups returns the claims unchanged.
func (PassthroughRoleMap) MapGroups(claims []string) []string { return claims }

// StaticRoleMap maps claim values through a fixed table. Claims without an
// entry are dropped.
type StaticRoleMap struct {
	roles  map[string][]string
	groups map[string][]string
}

type staticRoleMapFile struct {
	Roles  map[string][]string `yaml:"roles"`
	Groups map[string][]string `yaml:"groups"`
}

// LoadStaticRoleMap reads a static role map from a YAML file.
func LoadStaticRoleMap(path string) (*StaticRoleMap, error) {
	if path == "" {
		return nil, fmt.Errorf("static role map requires a map file")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role map file: %w", err)
	}

	var file staticRoleMapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse role map file: %w", err)
	}

	return &StaticRoleMap{roles: file.Roles, groups: file.Groups}, nil
}

// MapRoles maps role claims through the table, deduplicated.
func (m *StaticRoleMap) MapRoles(claims []string) []string {
	return mapClaims(m.roles, claims)
}

// MapGroups maps group claims through the table, deduplicated.
func (m *StaticRoleMap) MapGroups(claims []string) []string {
	return mapClaims(m.groups, claims)
}

func mapClaims(table map[string][]string, claims []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(claims))
	for _, claim := range claims {
		for _, mapped := range table[claim] {
			if _, ok := seen[mapped]; ok {
				continue
			}
			seen[mapped] = struct{}{}
			out = append(out, mapped)
		}
	}
	return out
}
