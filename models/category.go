package models

import (
	"context"
	"time"

	"github.com/fintally/ledger_backend/config"
	"github.com/fintally/ledger_backend/utils"
)

// CategoryRef is an opaque reference into the category tree, by id or name.
type CategoryRef struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

// CategoryResolver is the external category-hierarchy collaborator. The
// ledger never walks the tree; it only asks for a stable category id.
type CategoryResolver interface {
	Resolve(ctx context.Context, organizationId string, ref CategoryRef) (int, error)
}

var categoryResolver CategoryResolver = dbCategoryResolver{}

// SetCategoryResolver swaps the resolver implementation (tests, or a
// service-backed resolver in deployments that split the category tree out).
func SetCategoryResolver(r CategoryResolver) {
	if r == nil {
		categoryResolver = dbCategoryResolver{}
		return
	}
	categoryResolver = r
}

// Category rows are managed by the out-of-scope category module; the table
// exists here so the default resolver and the seed tool have something to
// resolve against.
type Category struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId string    `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"index;size:100;not null" json:"name"`
	ParentId       int       `gorm:"index;default:0" json:"parent_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c Category) GetId() int {
	return c.ID
}

type dbCategoryResolver struct{}

func (dbCategoryResolver) Resolve(ctx context.Context, organizationId string, ref CategoryRef) (int, error) {
	db := config.GetDB()
	var category Category
	dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
	if ref.Id > 0 {
		dbCtx = dbCtx.Where("id = ?", ref.Id)
	} else if ref.Name != "" {
		dbCtx = dbCtx.Where("name = ?", ref.Name)
	} else {
		return 0, utils.NewValidationError("category reference requires an id or a name")
	}
	if err := dbCtx.First(&category).Error; err != nil {
		return 0, utils.NewNotFoundError("Category")
	}
	return category.ID, nil
}
