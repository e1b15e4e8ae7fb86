package state_test

import (
	"testing"

	"github.com/jrsteele09/go-budget-client/state"
	"github.com/stretchr/testify/require"
)

func TestListHelpers(t *testing.T) {
	list := []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}

	t.Run("append keeps duplicates", func(t *testing.T) {
		out := state.Append(state.Clone(list), item{ID: 2, Name: "b"})
		require.Len(t, out, 3)
	})

	t.Run("replace first match", func(t *testing.T) {
		out, found := state.ReplaceByID(state.Clone(list), item{ID: 2, Name: "B"})
		require.True(t, found)
		require.Equal(t, []item{{ID: 1, Name: "a"}, {ID: 2, Name: "B"}}, out)
	})

	t.Run("replace missing is a no-op", func(t *testing.T) {
		out, found := state.ReplaceByID(state.Clone(list), item{ID: 9, Name: "z"})
		require.False(t, found)
		require.Equal(t, list, out)
	})

	t.Run("remove all matches", func(t *testing.T) {
		dup := []item{{ID: 1}, {ID: 2}, {ID: 1}}
		require.Equal(t, []item{{ID: 2}}, state.RemoveByID(dup, 1))
	})

	t.Run("find", func(t *testing.T) {
		got, ok := state.FindByID(list, 1)
		require.True(t, ok)
		require.Equal(t, "a", got.Name)
		_, ok = state.FindByID(list, 3)
		require.False(t, ok)
	})

	t.Run("clone preserves nil and empty", func(t *testing.T) {
		require.Nil(t, state.Clone[item](nil))
		require.NotNil(t, state.Clone([]item{}))
	})
}
