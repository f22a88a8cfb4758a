package postgres

import (
	"context"
	"errors"
	"fmt"

	"flagsplit/business/splittest"
	"flagsplit/domain"

	"gorm.io/gorm"
)

type EnvironmentRepository struct {
	DB *gorm.DB
}

var _ splittest.EnvironmentRepository = (*EnvironmentRepository)(nil)

func NewEnvironmentRepository(db *gorm.DB) *EnvironmentRepository {
	return &EnvironmentRepository{DB: db}
}

func (r *EnvironmentRepository) Create(ctx context.Context, env *domain.Environment) error {
	if err := r.DB.WithContext(ctx).Create(env).Error; err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}

	return nil
}

func (r *EnvironmentRepository) FindAll(ctx context.Context) ([]domain.Environment, error) {
	var envs []domain.Environment

	if err := r.DB.WithContext(ctx).Find(&envs).Error; err != nil {
		return nil, fmt.Errorf("failed to query environments: %w", err)
	}

	return envs, nil
}

func (r *EnvironmentRepository) FindByID(ctx context.Context, id uint) (domain.Environment, error) {
	var env domain.Environment

	err := r.DB.WithContext(ctx).First(&env, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Environment{}, errors.New("environment not found")
		}
		return domain.Environment{}, fmt.Errorf("failed to query environment: %w", err)
	}

	return env, nil
}

func (r *EnvironmentRepository) FindByAPIKey(ctx context.Context, apiKey string) (domain.Environment, error) {
	var env domain.Environment

	err := r.DB.WithContext(ctx).Where("api_key = ?", apiKey).First(&env).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Environment{}, errors.New("environment not found")
		}
		return domain.Environment{}, fmt.Errorf("failed to query environment: %w", err)
	}

	return env, nil
}
