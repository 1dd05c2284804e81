package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsE164(t *testing.T) {
	require.True(t, IsE164("+15555550101"))
	require.True(t, IsE164("+254700000001"))
	require.False(t, IsE164("5555550101"))
	require.False(t, IsE164("+0123456789"))
	require.False(t, IsE164("+1 555 555 0101"))
}

func TestIsValidEmailSyntax(t *testing.T) {
	require.True(t, IsValidEmailSyntax("tenant@rentwell.dev"))
	require.False(t, IsValidEmailSyntax("not-an-email"))
	require.False(t, IsValidEmailSyntax(""))
}
