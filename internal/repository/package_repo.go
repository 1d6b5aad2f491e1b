package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"roomclean/internal/domain"
)

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// Get returns a package with the active extras offered for it. Extras with
// package id zero are offered for every package.
func (r *PackageRepository) Get(ctx context.Context, id int64) (*domain.CleaningPackage, error) {
	var m packageModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}

	extras, err := r.activeExtras(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	pkg := toDomainPackage(m)
	pkg.Extras = extras[id]
	return pkg, nil
}

func (r *PackageRepository) ListActive(ctx context.Context) ([]*domain.CleaningPackage, error) {
	var rows []packageModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("base_price ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}
	extras, err := r.activeExtras(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.CleaningPackage, 0, len(rows))
	for _, m := range rows {
		pkg := toDomainPackage(m)
		pkg.Extras = extras[m.ID]
		out = append(out, pkg)
	}
	return out, nil
}

func (r *PackageRepository) Create(ctx context.Context, pkg *domain.CleaningPackage) error {
	m := packageModel{
		Name:        pkg.Name,
		Description: pkg.Description,
		BasePrice:   pkg.BasePrice,
		Active:      pkg.Active,
		CreatedAt:   pkg.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert package %q: %w", pkg.Name, mapError(err))
	}
	pkg.ID = m.ID
	return nil
}

func (r *PackageRepository) CreateExtra(ctx context.Context, extra *domain.ExtraOption) error {
	m := extraOptionModel{
		PackageID: extra.PackageID,
		Name:      extra.Name,
		Price:     extra.Price,
		Active:    extra.Active,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert extra %q: %w", extra.Name, mapError(err))
	}
	extra.ID = m.ID
	return nil
}

// CountPackages is used by the seeder to stay idempotent.
func (r *PackageRepository) CountPackages(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&packageModel{}).Count(&n).Error
	return n, err
}

func (r *PackageRepository) activeExtras(ctx context.Context, packageIDs []int64) (map[int64][]domain.ExtraOption, error) {
	out := make(map[int64][]domain.ExtraOption, len(packageIDs))
	if len(packageIDs) == 0 {
		return out, nil
	}

	var rows []extraOptionModel
	err := r.db.WithContext(ctx).
		Where("active = ? AND (package_id IN ? OR package_id = 0)", true, packageIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list extras: %w", err)
	}

	for _, m := range rows {
		e := domain.ExtraOption{ID: m.ID, PackageID: m.PackageID, Name: m.Name, Price: m.Price, Active: m.Active}
		if m.PackageID == 0 {
			for _, id := range packageIDs {
				out[id] = append(out[id], e)
			}
			continue
		}
		out[m.PackageID] = append(out[m.PackageID], e)
	}
	return out, nil
}

func toDomainPackage(m packageModel) *domain.CleaningPackage {
	return &domain.CleaningPackage{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		BasePrice:   m.BasePrice,
		Active:      m.Active,
		CreatedAt:   m.CreatedAt,
	}
}
