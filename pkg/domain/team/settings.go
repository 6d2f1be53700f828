package team

// Strategy selects how implicit team membership is evaluated.
type Strategy string

const (
	// StrategyNone disables implicit membership entirely.
	StrategyNone Strategy = "none"
	// StrategyRoles grants implicit membership to users holding all of a
	// team's required external roles.
	StrategyRoles Strategy = "roles"
	// StrategyTeams grants implicit membership to users in any of a
	// team's required external groups.
	StrategyTeams Strategy = "teams"
)

// IsValid checks if the strategy is valid.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyNone, StrategyRoles, StrategyTeams:
		return true
	}
	return false
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// ParseStrategy parses a string to a Strategy. The empty string parses to
// StrategyNone.
func ParseStrategy(s string) (Strategy, bool) {
	if s == "" {
		return StrategyNone, true
	}
	st := Strategy(s)
	return st, st.IsValid()
}

// Settings carries the process-wide team resolution toggles. It is passed
// explicitly at construction so tests can run multiple configurations in
// parallel.
type Settings struct {
	// NestedTeams enables role inheritance along the ancestor chain.
	NestedTeams bool
	// ImplicitStrategy selects the implicit-membership evaluation mode.
	ImplicitStrategy Strategy
}

// ImplicitEnabled reports whether any implicit-membership strategy is active.
func (s Settings) ImplicitEnabled() bool {
	return s.ImplicitStrategy == StrategyRoles || s.ImplicitStrategy == StrategyTeams
}
