package domain

import (
	"time"
)

// SplitTest is one persisted result row per (feature, environment, arm).
// MultivariateOptionID is nil for the control arm. Rows are upserted on
// every pipeline run and never deleted; an arm with no data keeps a row
// with zero counts.
type SplitTest struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	FeatureID            uint      `gorm:"column:feature_id;not null;index:idx_split_test_feature_env" json:"feature_id"`
	EnvironmentID        uint      `gorm:"column:environment_id;not null;index:idx_split_test_feature_env" json:"environment_id"`
	MultivariateOptionID *uint     `gorm:"column:multivariate_option_id" json:"multivariate_option_id"`
	EvaluationCount      int       `gorm:"column:evaluation_count;not null" json:"evaluation_count"`
	ConversionCount      int       `gorm:"column:conversion_count;not null" json:"conversion_count"`
	PValue               float64   `gorm:"column:pvalue;not null" json:"pvalue"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (SplitTest) TableName() string {
	return "split_tests"
}
