package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/rotaract/reportdesk/core/user"
)

var userColumns = []string{
	"id", "full_name", "username", "email", "roles", "is_active",
	"password_hash", "refresh_token_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID               string         `db:"id"`
	FullName         string         `db:"full_name"`
	Username         string         `db:"username"`
	Email            string         `db:"email"`
	Roles            pq.StringArray `db:"roles"`
	IsActive         bool           `db:"is_active"`
	PasswordHash     null.Bytes     `db:"password_hash"`
	RefreshTokenHash null.String    `db:"refresh_token_hash"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        null.Time      `db:"updated_at"`
	LastLogin        null.Time      `db:"last_login"`
}

func (r userRow) values() []interface{} {
	return []interface{}{
		r.ID, r.FullName, r.Username, r.Email, r.Roles, r.IsActive,
		r.PasswordHash, r.RefreshTokenHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	}
}

type UserRepository struct {
	exec Executor
}

var _ user.Repository = (*UserRepository)(nil) // interface compliance check

func NewUserRepository(exec Executor) *UserRepository {
	return &UserRepository{exec: exec}
}

func (repo UserRepository) toRow(usr user.User) userRow {
	roles := usr.Roles
	if roles == nil {
		roles = []string{}
	}
	return userRow{
		ID:               usr.ID,
		FullName:         usr.FullName,
		Username:         usr.Username,
		Email:            usr.Email,
		Roles:            roles,
		IsActive:         usr.IsActive,
		PasswordHash:     null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		RefreshTokenHash: null.NewString(usr.RefreshTokenHash, usr.RefreshTokenHash != ""),
		CreatedAt:        usr.CreatedAt.UTC(),
		UpdatedAt:        null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:        null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo UserRepository) fromRow(r userRow) user.User {
	return user.User{
		ID:               r.ID,
		FullName:         r.FullName,
		Username:         r.Username,
		Email:            r.Email,
		Roles:            r.Roles,
		IsActive:         r.IsActive,
		PasswordHash:     r.PasswordHash.Bytes,
		RefreshTokenHash: r.RefreshTokenHash.String,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.Time.UTC(),
		LastLogin:        r.LastLogin.Time.UTC(),
	}
}

func (repo UserRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	where := sq.And{sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}}}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		where = append(where, sq.NotEq{"id": ids})
	}
	query, args, err := psql.Select("username").From(UsersTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var taken string
	err = sqlx.GetContext(ctx, repo.exec, &taken, query, args...)
	switch {
	case err == nil:
		if taken == username {
			return user.ErrUsernameExists
		}
		return user.ErrEmailExists
	case errors.Is(err, errNoRows):
		return nil
	default:
		return errors.Wrap(err, "checking user uniqueness")
	}
}

func (repo UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	query, args, err := psql.Insert(UsersTable).Columns(userColumns...).Values(repo.toRow(usr).values()...).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.exec.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo UserRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var where sq.Sqlizer
	switch {
	case filter.ID != "":
		where = sq.Eq{"id": filter.ID}
	case filter.UsernameOrEmail != "":
		where = sq.Or{sq.Eq{"username": filter.UsernameOrEmail}, sq.Eq{"email": filter.UsernameOrEmail}}
	default:
		return user.User{}, user.ErrNotFound
	}
	query, args, err := psql.Select(userColumns...).From(UsersTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	var row userRow
	if err = sqlx.GetContext(ctx, repo.exec, &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo UserRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.toRow(usr)
	query, args, err := psql.Update(UsersTable).SetMap(map[string]interface{}{
		"full_name":          row.FullName,
		"username":           row.Username,
		"email":              row.Email,
		"roles":              row.Roles,
		"is_active":          row.IsActive,
		"password_hash":      row.PasswordHash,
		"refresh_token_hash": row.RefreshTokenHash,
		"updated_at":         row.UpdatedAt,
		"last_login":         row.LastLogin,
	}).Where(sq.Eq{"id": usr.ID}).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building query")
	}

	res, err := repo.exec.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
