package domain

import (
	"time"
)

type Environment struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"column:name;not null" json:"name"`
	APIKey string `gorm:"column:api_key;unique;not null" json:"api_key"`

	// When set, variant bucketing hashes "<api_key>_<identifier>" instead of
	// the bare identifier, so the same identity can land in different arms in
	// different environments.
	UseIdentityCompositeKeyForHashing bool `gorm:"column:use_identity_composite_key_for_hashing;default:true" json:"use_identity_composite_key_for_hashing"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Environment) TableName() string {
	return "environments"
}
