package postgres

import (
	"context"
	"fmt"

	"flagsplit/business/evaluation"
	"flagsplit/business/splittest"
	"flagsplit/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdentityRepository struct {
	DB *gorm.DB
}

var (
	_ splittest.IdentityRepository  = (*IdentityRepository)(nil)
	_ evaluation.IdentityRepository = (*IdentityRepository)(nil)
)

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{DB: db}
}

// GetOrCreate inserts the identity if unseen, refreshing traits when given,
// and returns the stored row either way.
func (r *IdentityRepository) GetOrCreate(
	ctx context.Context,
	environmentID uint,
	identifier string,
	traits datatypes.JSONMap,
) (domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Identity{}, fmt.Errorf("context error: %w", err)
	}

	row := domain.Identity{
		EnvironmentID: environmentID,
		Identifier:    identifier,
		Traits:        traits,
	}

	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "environment_id"}, {Name: "identifier"}},
		DoNothing: true,
	}
	if traits != nil {
		conflict.DoNothing = false
		conflict.DoUpdates = clause.AssignmentColumns([]string{"traits"})
	}

	if err := r.DB.WithContext(ctx).Clauses(conflict).Create(&row).Error; err != nil {
		return domain.Identity{}, fmt.Errorf("failed to upsert identity: %w", err)
	}

	// DoNothing leaves the ID unset when the row already existed.
	if row.ID == 0 {
		err := r.DB.WithContext(ctx).
			Where("environment_id = ? AND identifier = ?", environmentID, identifier).
			First(&row).Error
		if err != nil {
			return domain.Identity{}, fmt.Errorf("failed to query identity: %w", err)
		}
	}

	return row, nil
}

func (r *IdentityRepository) FindByIdentifiers(
	ctx context.Context,
	environmentID uint,
	identifiers []string,
) ([]domain.Identity, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}

	var identities []domain.Identity

	err := r.DB.WithContext(ctx).
		Where("environment_id = ? AND identifier IN ?", environmentID, identifiers).
		Find(&identities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query identities: %w", err)
	}

	return identities, nil
}
