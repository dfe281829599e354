// models/models.go
package models

import (
	"time"
)

// PlayerInfo 游戏记录里的一名参与者
type PlayerInfo struct {
	Name  string `json:"name"`
	Roles []int  `json:"roles"`
}

// GameRecord 一局已结束游戏的归档记录
type GameRecord struct {
	SessionID   string       `json:"session_id"`
	Formulation string       `json:"formulation"`
	Players     []PlayerInfo `json:"players"`
	Winner      string       `json:"winner"`
	Completion  string       `json:"completion"`
	Transitions int          `json:"transitions"`
	DurationSec int          `json:"duration_sec"`
	CreatedAt   time.Time    `json:"created_at"`
}
