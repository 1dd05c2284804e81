package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sweep", "retry", "show", "pending"} {
		require.True(t, names[want], "missing subcommand %s", want)
	}

	retry, _, err := root.Find([]string{"retry"})
	require.NoError(t, err)
	require.Error(t, retry.Args(retry, nil))
	require.NoError(t, retry.Args(retry, []string{"id"}))

	sweep, _, err := root.Find([]string{"sweep"})
	require.NoError(t, err)
	require.Error(t, sweep.Args(sweep, []string{"extra"}))

	pending, _, err := root.Find([]string{"pending"})
	require.NoError(t, err)
	require.NotNil(t, pending.Flags().Lookup("failed"))
	require.Equal(t, defaultCommandTimeout.String(), root.PersistentFlags().Lookup("timeout").DefValue)
}
