package secrets

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestSourceTokens(t *testing.T) {
	keyring.MockInit()
	acct := SourceAccount(" tips ")
	require.Equal(t, "jobmarket:source:tips", acct)

	tok, err := GetSourceToken(acct)
	require.NoError(t, err)
	require.Empty(t, tok)

	require.NoError(t, SetSourceToken(acct, "abc123"))
	tok, err = GetSourceToken(acct)
	require.NoError(t, err)
	require.Equal(t, "abc123", tok)

	require.NoError(t, DeleteSourceToken(acct))
	require.NoError(t, DeleteSourceToken(acct))
	tok, err = GetSourceToken(acct)
	require.NoError(t, err)
	require.Empty(t, tok)
}

func TestSourceTokens_Validation(t *testing.T) {
	keyring.MockInit()
	_, err := GetSourceToken("  ")
	require.ErrorIs(t, err, ErrEmptyAccount)
	require.ErrorIs(t, SetSourceToken("", "x"), ErrEmptyAccount)
	require.Error(t, SetSourceToken("a", " "))
	require.ErrorIs(t, DeleteSourceToken(""), ErrEmptyAccount)
}
