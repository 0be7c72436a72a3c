package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashTokenIsStableAndOpaque(t *testing.T) {
	a := HashToken("secret")
	b := HashToken("secret")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
	require.NotContains(t, a, "secret")

	require.NotEqual(t, a, HashToken("Secret"))
}

func TestGenerateTokenSecretURLSafe(t *testing.T) {
	secret, err := GenerateTokenSecret(32)
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	// 明文直接进查询串，不能带需要转义的字符
	require.False(t, strings.ContainsAny(secret, "+/=&?"))

	other, err := GenerateTokenSecret(32)
	require.NoError(t, err)
	require.NotEqual(t, secret, other)
}
