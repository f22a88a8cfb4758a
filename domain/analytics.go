package domain

import (
	"time"

	"gorm.io/datatypes"
)

// FeatureEvaluationRaw is one append-only record of "this feature was
// evaluated in this environment". IdentityIdentifier is nil for anonymous
// evaluations, which are kept for usage counting but can never be attributed
// to a variant.
type FeatureEvaluationRaw struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	EnvironmentID        uint      `gorm:"column:environment_id;not null;index" json:"environment_id"`
	FeatureName          string    `gorm:"column:feature_name;not null;index" json:"feature_name"`
	IdentityIdentifier   *string   `gorm:"column:identity_identifier" json:"identity_identifier,omitempty"`
	EnabledWhenEvaluated bool      `gorm:"column:enabled_when_evaluated" json:"enabled_when_evaluated"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (FeatureEvaluationRaw) TableName() string {
	return "feature_evaluation_raw"
}

type ConversionEvent struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	EnvironmentID uint              `gorm:"column:environment_id;not null;index" json:"environment_id"`
	IdentityID    uint              `gorm:"column:identity_id;not null;index" json:"identity_id"`
	EventType     string            `gorm:"column:event_type;not null" json:"event_type"`
	Metadata      datatypes.JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ConversionEvent) TableName() string {
	return "conversion_events"
}

// EvaluatedPair is one distinct (environment, identifier) exposure derived
// from the raw evaluation log.
type EvaluatedPair struct {
	EnvironmentID      uint
	IdentityIdentifier string
}
