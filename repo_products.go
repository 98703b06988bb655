package shop

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Products is the catalog repository
type Products interface {
	repository.Repository[*Product]

	Search(ctx context.Context, query string, limit, offset int) ([]*Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type products struct {
	repository.Repository[*Product]
	db *bun.DB
}

var (
	_ Products                        = (*products)(nil)
	_ repository.Repository[*Product] = (*products)(nil)
)

func NewProductsRepository(db *bun.DB) Products {
	repo := repository.NewRepository[*Product](db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &products{
		Repository: repo,
		db:         db,
	}
}

// Search filters products whose name contains the query, case
// insensitively. An empty query lists the catalog page.
func (a *products) Search(ctx context.Context, query string, limit, offset int) ([]*Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var records []*Product
	q := a.db.NewSelect().
		Model(&records).
		Order("name ASC").
		Limit(limit).
		Offset(offset)

	if trimmed := strings.TrimSpace(query); trimmed != "" {
		q = q.Where("LOWER(?TableAlias.name) LIKE ?", "%"+strings.ToLower(trimmed)+"%")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *products) FindByID(ctx context.Context, id string) (*Product, error) {
	record := &Product{}

	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *products) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*Product)(nil)).
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
