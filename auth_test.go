package main

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	// "e" + combining acute composes to a single code point.
	assert.Equal(t, "jos\u00e9@example.com", normalizeEmail("  jose\u0301@example.com\n"))
	assert.Equal(t, "", normalizeEmail("   "))
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	got := accessExpiry(signed)
	require.NotNil(t, got)
	assert.True(t, exp.Equal(*got))
}

func TestAccessExpiry_Opaque(t *testing.T) {
	assert.Nil(t, accessExpiry("not-a-jwt"))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.Nil(t, accessExpiry(noExp))
}

func stdinCmd(input string) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("password-stdin", true, "")
	cmd.SetIn(strings.NewReader(input))

	return cmd
}

func TestPasswordReader_Stdin(t *testing.T) {
	pr := newPasswordReader(stdinCmd("old\r\nnew\nlast"))

	for _, want := range []string{"old", "new", "last"} {
		got, err := pr.read("Password")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := pr.read("Password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading password from stdin")
}

func TestRequiredEmail(t *testing.T) {
	cmd := newLoginCmd()

	_, err := requiredEmail(cmd)
	require.Error(t, err)

	require.NoError(t, cmd.Flags().Set("email", " me@example.com "))

	email, err := requiredEmail(cmd)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", email)
}
