// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	SessionID   string                 `gorm:"index;not null"`
	Formulation string                 `gorm:"not null"`
	Players     map[string]interface{} `gorm:"type:jsonb;serializer:json"`
	Winner      string
	Completion  string
	Transitions int `gorm:"default:0"`
	DurationSec int `gorm:"default:0"`
}
