package postgres

import (
	"context"
	"fmt"

	"flagsplit/business/splittest"
	"flagsplit/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SplitTestRepository struct {
	DB *gorm.DB
}

var _ splittest.SplitTestRepository = (*SplitTestRepository)(nil)

func NewSplitTestRepository(db *gorm.DB) *SplitTestRepository {
	return &SplitTestRepository{DB: db}
}

func (r *SplitTestRepository) FindByFeature(ctx context.Context, featureID uint) ([]domain.SplitTest, error) {
	var rows []domain.SplitTest

	err := r.DB.WithContext(ctx).
		Where("feature_id = ?", featureID).
		Order("environment_id, multivariate_option_id NULLS FIRST").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query split tests: %w", err)
	}

	return rows, nil
}

func (r *SplitTestRepository) FindByFeatureAndEnvironment(
	ctx context.Context,
	featureID, environmentID uint,
) ([]domain.SplitTest, error) {
	var rows []domain.SplitTest

	err := r.DB.WithContext(ctx).
		Where("feature_id = ? AND environment_id = ?", featureID, environmentID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query split tests: %w", err)
	}

	return rows, nil
}

// BulkUpdateCounts rewrites the computed columns of existing rows in one
// statement via an upsert keyed on the primary key.
func (r *SplitTestRepository) BulkUpdateCounts(ctx context.Context, rows []domain.SplitTest) error {
	if len(rows) == 0 {
		return nil
	}

	err := r.DB.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"evaluation_count",
				"conversion_count",
				"pvalue",
				"updated_at",
			}),
		},
	).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to bulk update split tests: %w", err)
	}

	return nil
}

func (r *SplitTestRepository) BulkCreate(ctx context.Context, rows []domain.SplitTest) error {
	if len(rows) == 0 {
		return nil
	}

	if err := r.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to bulk create split tests: %w", err)
	}

	return nil
}
