package repo

import (
	"context"
	"fmt"

	"lifelink/internal/domain"
	"lifelink/internal/infra"
	"lifelink/internal/sqlinline"
)

// UserPG implements domain.UserStore backed by PostgreSQL.
type UserPG struct {
	sql infra.SQLExecutor
}

// NewUserPG creates a new UserPG.
func NewUserPG(sql infra.SQLExecutor) *UserPG {
	return &UserPG{sql: sql}
}

func (r *UserPG) Create(ctx context.Context, user *domain.User) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertLedgerUser, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt.UTC())
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return fmt.Errorf("%w: username %q already registered", domain.ErrConflict, user.Username)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserPG) Get(ctx context.Context, username string) (*domain.User, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectLedgerUser, username)
	var u domain.User
	var role string
	if err := row.Scan(&u.Username, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u.Role = domain.UserRole(role)
	return &u, nil
}
