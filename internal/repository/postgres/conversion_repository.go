package postgres

import (
	"context"
	"fmt"

	"flagsplit/business/evaluation"
	"flagsplit/business/splittest"
	"flagsplit/domain"

	"gorm.io/gorm"
)

type ConversionRepository struct {
	DB *gorm.DB
}

var (
	_ splittest.ConversionRepository  = (*ConversionRepository)(nil)
	_ evaluation.ConversionRepository = (*ConversionRepository)(nil)
)

func NewConversionRepository(db *gorm.DB) *ConversionRepository {
	return &ConversionRepository{DB: db}
}

func (r *ConversionRepository) SaveEvent(ctx context.Context, event domain.ConversionEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to save conversion event: %w", err)
	}

	return nil
}

// ConvertedIdentityIDs returns the distinct subset of identityIDs that have
// at least one conversion event in the environment. Multiple conversions by
// one identity still count once.
func (r *ConversionRepository) ConvertedIdentityIDs(
	ctx context.Context,
	environmentID uint,
	identityIDs []uint,
) (map[uint]struct{}, error) {
	if len(identityIDs) == 0 {
		return map[uint]struct{}{}, nil
	}

	var ids []uint

	err := r.DB.WithContext(ctx).
		Model(&domain.ConversionEvent{}).
		Distinct("identity_id").
		Where("environment_id = ?", environmentID).
		Where("identity_id IN ?", identityIDs).
		Pluck("identity_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}

	converted := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		converted[id] = struct{}{}
	}

	return converted, nil
}
