package domain

import (
	"time"
)

const (
	FeatureTypeStandard     = "standard"
	FeatureTypeMultivariate = "multivariate"
)

type Feature struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"column:name;unique;not null" json:"name"`
	Type         string    `gorm:"column:type;not null;default:standard" json:"type"`
	DefaultValue string    `gorm:"column:default_value;type:text" json:"default_value"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	MultivariateOptions []MultivariateOption `gorm:"foreignKey:FeatureID" json:"multivariate_options,omitempty"`
}

func (Feature) TableName() string {
	return "features"
}

// MultivariateOption is one weighted variant of a multivariate feature.
// PercentageAllocation values need not sum to 100; the remainder of the
// weight space falls through to the control value.
type MultivariateOption struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	FeatureID            uint      `gorm:"column:feature_id;not null;index" json:"feature_id"`
	Value                string    `gorm:"column:value;type:text" json:"value"`
	PercentageAllocation float64   `gorm:"column:percentage_allocation;not null" json:"percentage_allocation"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (MultivariateOption) TableName() string {
	return "multivariate_options"
}

// FeatureState is the per-environment state of a feature: whether it is
// enabled there and the direct (control) value served when an identity does
// not fall into any variant window.
type FeatureState struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FeatureID     uint      `gorm:"column:feature_id;not null;uniqueIndex:idx_feature_environment" json:"feature_id"`
	EnvironmentID uint      `gorm:"column:environment_id;not null;uniqueIndex:idx_feature_environment" json:"environment_id"`
	Enabled       bool      `gorm:"column:enabled;default:false" json:"enabled"`
	Value         string    `gorm:"column:value;type:text" json:"value"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (FeatureState) TableName() string {
	return "feature_states"
}
