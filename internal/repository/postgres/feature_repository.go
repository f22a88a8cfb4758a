package postgres

import (
	"context"
	"errors"
	"fmt"

	"flagsplit/business/evaluation"
	"flagsplit/business/splittest"
	"flagsplit/domain"

	"gorm.io/gorm"
)

type FeatureRepository struct {
	DB *gorm.DB
}

// Compile-time checks that the struct implements both service contracts.
var (
	_ splittest.FeatureRepository  = (*FeatureRepository)(nil)
	_ evaluation.FeatureRepository = (*FeatureRepository)(nil)
)

func NewFeatureRepository(db *gorm.DB) *FeatureRepository {
	return &FeatureRepository{DB: db}
}

func (r *FeatureRepository) Create(ctx context.Context, feature *domain.Feature) error {
	if err := r.DB.WithContext(ctx).Create(feature).Error; err != nil {
		return fmt.Errorf("failed to create feature: %w", err)
	}

	return nil
}

func (r *FeatureRepository) FindAll(ctx context.Context) ([]domain.Feature, error) {
	var features []domain.Feature

	err := r.DB.WithContext(ctx).
		Preload("MultivariateOptions").
		Find(&features).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}

	return features, nil
}

func (r *FeatureRepository) FindByID(ctx context.Context, id uint) (domain.Feature, error) {
	var feature domain.Feature

	err := r.DB.WithContext(ctx).
		Preload("MultivariateOptions").
		First(&feature, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Feature{}, errors.New("feature not found")
		}
		return domain.Feature{}, fmt.Errorf("failed to query feature: %w", err)
	}

	return feature, nil
}

func (r *FeatureRepository) FindMultivariateFeatures(ctx context.Context) ([]domain.Feature, error) {
	var features []domain.Feature

	err := r.DB.WithContext(ctx).
		Where("type = ?", domain.FeatureTypeMultivariate).
		Find(&features).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query multivariate features: %w", err)
	}

	return features, nil
}

func (r *FeatureRepository) FindStatesByFeature(ctx context.Context, featureID uint) ([]domain.FeatureState, error) {
	var states []domain.FeatureState

	err := r.DB.WithContext(ctx).
		Where("feature_id = ?", featureID).
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feature states: %w", err)
	}

	return states, nil
}

func (r *FeatureRepository) FindStatesByEnvironment(ctx context.Context, environmentID uint) ([]domain.FeatureState, error) {
	var states []domain.FeatureState

	err := r.DB.WithContext(ctx).
		Where("environment_id = ?", environmentID).
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feature states: %w", err)
	}

	return states, nil
}

func (r *FeatureRepository) CreateOption(ctx context.Context, option *domain.MultivariateOption) error {
	if err := r.DB.WithContext(ctx).Create(option).Error; err != nil {
		return fmt.Errorf("failed to create multivariate option: %w", err)
	}

	return nil
}

func (r *FeatureRepository) UpsertState(ctx context.Context, state *domain.FeatureState) error {
	var existing domain.FeatureState

	err := r.DB.WithContext(ctx).
		Where("feature_id = ? AND environment_id = ?", state.FeatureID, state.EnvironmentID).
		First(&existing).Error
	if err == nil {
		state.ID = existing.ID
		return r.DB.WithContext(ctx).
			Model(&existing).
			Select("enabled", "value").
			Updates(state).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to query feature state: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(state).Error; err != nil {
		return fmt.Errorf("failed to create feature state: %w", err)
	}

	return nil
}
