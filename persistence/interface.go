// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/turnwell/gameserver/models"
)

// Database 数据库接口。只归档已结束的游戏；运行中的会话状态不落盘。
type Database interface {
	SaveGameRecord(record *models.GameRecord) error
	RecentGameRecords(limit int) ([]models.GameRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
