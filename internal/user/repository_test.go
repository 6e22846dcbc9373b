package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now()

	email := "john@example.com"
	password := "hashed_password"

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users \(email, password, role\) VALUES \(\$1, \$2, \$3\) RETURNING id, email, password, role, created_at`).
			WithArgs(email, password, RoleCustomer).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role", "created_at"}).
				AddRow(1, email, password, "CUSTOMER", now))

		u, err := repo.Create(ctx, email, password, RoleCustomer)
		require.NoError(t, err)
		assert.Equal(t, uint(1), u.ID)
		assert.Equal(t, RoleCustomer, u.Role)
	})

	t.Run("Duplicate", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

		_, err := repo.Create(ctx, email, password, RoleCustomer)
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(errors.New("db error"))

		_, err := repo.Create(ctx, email, password, RoleCustomer)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmailExists)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, email, password, role, created_at FROM users WHERE email = \$1`).
			WithArgs("an@shop.vn").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role", "created_at"}).
				AddRow(3, "an@shop.vn", "hash", "ADMIN", time.Now()))

		u, err := repo.FindByEmail(ctx, "an@shop.vn")
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, u.Role)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`FROM users WHERE email`).
			WithArgs("ghost@shop.vn").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password", "role", "created_at"}))

		_, err := repo.FindByEmail(ctx, "ghost@shop.vn")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
