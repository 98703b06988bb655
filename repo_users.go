package shop

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var setPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the account repository. The Find* methods implement the
// UserStore contract the auth core consumes.
type Users interface {
	repository.Repository[*User]
	UserStore

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetOrCreateByEmailTx(ctx context.Context, tx bun.IDB, record *User) (*User, bool, error)

	UsernameTaken(ctx context.Context, username string) (bool, error)
	PhoneTaken(ctx context.Context, phone string) (bool, error)

	SetRememberMe(ctx context.Context, id string, rememberMe bool) error
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ UserStore                    = (*users)(nil)
	_ RememberPreferenceStore      = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) FindByUsername(ctx context.Context, username string) (*User, error) {
	return a.findByColumn(ctx, a.db, "username", username)
}

func (a *users) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return a.findByColumn(ctx, a.db, "phone_number", phone)
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.findByColumn(ctx, a.db, "email", email)
}

func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	return a.findByColumn(ctx, a.db, "id", id)
}

func (a *users) findByColumn(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}

	err := tx.NewSelect().
		Model(record).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"column": column,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return a.columnTaken(ctx, "username", username)
}

func (a *users) PhoneTaken(ctx context.Context, phone string) (bool, error) {
	return a.columnTaken(ctx, "phone_number", phone)
}

func (a *users) columnTaken(ctx context.Context, column, value string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Exists(ctx)
}

// GetOrCreateByEmailTx finds an account by email or registers the given
// record. The bool reports whether a new account was created.
func (a *users) GetOrCreateByEmailTx(ctx context.Context, tx bun.IDB, record *User) (*User, bool, error) {
	user, err := a.findByColumn(ctx, tx, "email", record.Email)
	if err == nil {
		return user, false, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, false, err
	}

	created, err := a.RegisterTx(ctx, tx, record)
	if err != nil {
		return nil, false, err
	}

	return created, true, nil
}

func (a *users) SetRememberMe(ctx context.Context, id string, rememberMe bool) error {
	// NOTE: partial updates through the ORM drop zero-value booleans, so
	// this goes through a raw update.
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("remember_me = ?", rememberMe).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)

	return err
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.Raw(ctx, setPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
