package postgres

import (
	"context"
	"fmt"

	"flagsplit/business/evaluation"
	"flagsplit/business/splittest"
	"flagsplit/domain"

	"gorm.io/gorm"
)

type EvaluationRepository struct {
	DB *gorm.DB
}

var (
	_ splittest.EvaluationRepository     = (*EvaluationRepository)(nil)
	_ evaluation.EvaluationLogRepository = (*EvaluationRepository)(nil)
)

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

func (r *EvaluationRepository) BulkAppend(ctx context.Context, rows []domain.FeatureEvaluationRaw) error {
	if len(rows) == 0 {
		return nil
	}

	if err := r.DB.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to append evaluation rows: %w", err)
	}

	return nil
}

// DistinctEvaluatedPairs collapses the raw evaluation log for a feature to
// the distinct (environment, identifier) pairs. Anonymous rows carry no
// identifier and are excluded here rather than treated as malformed.
func (r *EvaluationRepository) DistinctEvaluatedPairs(
	ctx context.Context,
	featureName string,
	environmentIDs []uint,
) ([]domain.EvaluatedPair, error) {
	if len(environmentIDs) == 0 {
		return nil, nil
	}

	var pairs []domain.EvaluatedPair

	err := r.DB.WithContext(ctx).
		Model(&domain.FeatureEvaluationRaw{}).
		Distinct("environment_id", "identity_identifier").
		Where("feature_name = ?", featureName).
		Where("environment_id IN ?", environmentIDs).
		Where("identity_identifier IS NOT NULL").
		Scan(&pairs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluated pairs: %w", err)
	}

	return pairs, nil
}
