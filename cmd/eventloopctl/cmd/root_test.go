package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{{"migrate", "up"}, {"migrate", "down"}, {"migrate", "version"}, {"seed"}} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], c.Name())
	}

	steps := migrateDownCmd.Flags().Lookup("steps")
	require.NotNil(t, steps)
	assert.Equal(t, "1", steps.DefValue)
}

func TestSeed_RequiresPasswords(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("SEED_STAFF_PASSWORD", "")
	t.Setenv("SEED_USER_PASSWORD", "")

	rootCmd.SetArgs([]string{"seed"})
	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no seed accounts configured")
}

func TestSeed_RefusesMemoryStore(t *testing.T) {
	t.Setenv("STORE", "memory")

	rootCmd.SetArgs([]string{"seed"})
	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "in-memory")
}
