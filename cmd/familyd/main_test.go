package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dimitrije/family-core/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"serve", "migrate", "sweep", "token"}, names)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://unused")
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("ENV", "development")

	userID := uuid.New()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"token", userID.String(), "--email", "kid@example.com"})

	require.NoError(t, root.ExecuteContext(context.Background()))

	claims, err := services.NewJWTService("cli-secret", time.Minute).ValidateAccessToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "kid@example.com", claims.Email)
}

func TestTokenCommand_RefusesProduction(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://unused")
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("ENV", "production")

	root := newRootCommand()
	root.SetArgs([]string{"token", uuid.New().String()})

	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestTokenCommand_InvalidUserID(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"token", "nope"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user id")
}
