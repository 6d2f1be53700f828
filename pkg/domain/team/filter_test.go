package team

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openctemio/teams/pkg/domain/shared"
)

func TestFilterConstructors(t *testing.T) {
	t.Run("empty value sets collapse to nothing", func(t *testing.T) {
		assert.True(t, IsNothing(In("f")))
		assert.True(t, IsNothing(ContainsAll("f", nil)))
		assert.True(t, IsNothing(Overlaps("f", nil)))
		assert.True(t, IsNothing(ContainedBy("f", nil)))
		assert.True(t, IsNothing(AncestorsOverlap(nil)))
	})

	t.Run("empty disjunction is nothing, never match-all", func(t *testing.T) {
		assert.True(t, IsNothing(Or()))
	})

	t.Run("single-branch combinators unwrap", func(t *testing.T) {
		f := Eq("f", 1)
		assert.Equal(t, f, Or(f))
		assert.Equal(t, f, And(f))
	})

	t.Run("builders copy their value slices", func(t *testing.T) {
		values := []string{"a", "b"}
		f := ContainsAll("f", values).(ContainsAllFilter)
		values[0] = "mutated"
		assert.Equal(t, []string{"a", "b"}, f.Values)
	})

	t.Run("combinators do not alias their inputs", func(t *testing.T) {
		branches := []Filter{Eq("a", 1), Eq("b", 2)}
		f := Or(branches...).(OrFilter)
		branches[0] = Nothing()
		assert.Equal(t, Eq("a", 1), f.Filters[0])
	})
}

func TestHasMembership(t *testing.T) {
	id := shared.NewID()

	any := HasMembership(id).(MembershipMatchFilter)
	assert.Empty(t, any.Roles)

	constrained := HasMembership(id, RoleAdmin, RoleEditor).(MembershipMatchFilter)
	assert.Equal(t, []Role{RoleAdmin, RoleEditor}, constrained.Roles)
}
