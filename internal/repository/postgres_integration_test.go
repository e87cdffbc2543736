//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/zfogg/plaza/internal/database"
	apperrors "github.com/zfogg/plaza/internal/errors"
	"github.com/zfogg/plaza/internal/models"
	"gorm.io/gorm"
)

func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "plaza", "POSTGRES_USER": "postgres"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:password@%s:%d/plaza?sslmode=disable", host, port.Int())
	db, err := database.Initialize(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestPostgresFollowConstraints(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	follows := NewFollowRepository(db)

	a := &models.User{Username: "ada", Email: "ada@example.com"}
	b := &models.User{Username: "bob", Email: "bob@example.com"}
	require.NoError(t, users.Create(ctx, a))
	require.NoError(t, users.Create(ctx, b))

	require.NoError(t, follows.Create(ctx, a.ID, b.ID))
	assert.ErrorIs(t, follows.Create(ctx, a.ID, b.ID), apperrors.ErrConflict)

	// The check constraint holds even when the repository guard is bypassed
	err := db.Create(&models.Follow{FollowerID: a.ID, FolloweeID: a.ID}).Error
	assert.Error(t, err)

	// Case-insensitive uniqueness comes from the expression index
	err = users.Create(ctx, &models.User{Username: "ADA", Email: "other@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}
