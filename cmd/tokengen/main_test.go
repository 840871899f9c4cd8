package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MintsVerifiableToken(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-s", "secret", "-u", "alice", "-device", "phone", "-t", "1h"}, &out)
	require.NoError(t, err)

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), []byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "phone", claims.DeviceID)
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run([]string{"-u", "alice"}, &out), errNoSecret)
	assert.ErrorContains(t, run([]string{"-s", "secret"}, &out), "-u")
	assert.Empty(t, out.String())
}
