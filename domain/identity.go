package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Identity struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	EnvironmentID uint              `gorm:"column:environment_id;not null;uniqueIndex:idx_environment_identifier" json:"environment_id"`
	Identifier    string            `gorm:"column:identifier;not null;uniqueIndex:idx_environment_identifier" json:"identifier"`
	Traits        datatypes.JSONMap `gorm:"column:traits;type:jsonb" json:"traits"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Identity) TableName() string {
	return "identities"
}

// HashKey returns the bucketing key for this identity. The composite form is
// a fixed contract shared with variant bucketing; changing it re-buckets
// every identity.
func (i Identity) HashKey(environmentAPIKey string, useCompositeKey bool) string {
	if useCompositeKey {
		return environmentAPIKey + "_" + i.Identifier
	}
	return i.Identifier
}
