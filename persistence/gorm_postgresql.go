// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/turnwell/gameserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormGameRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (g *GormPostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	players := make(map[string]interface{}, len(record.Players))
	for _, p := range record.Players {
		players[p.Name] = p.Roles
	}

	row := &models.GormGameRecord{
		SessionID:   record.SessionID,
		Formulation: record.Formulation,
		Players:     players,
		Winner:      record.Winner,
		Completion:  record.Completion,
		Transitions: record.Transitions,
		DurationSec: record.DurationSec,
	}
	return g.db.Create(row).Error
}

func (g *GormPostgreSQL) RecentGameRecords(limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []models.GormGameRecord
	if err := g.db.Order("created_at desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.GameRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.GameRecord{
			SessionID:   row.SessionID,
			Formulation: row.Formulation,
			Winner:      row.Winner,
			Completion:  row.Completion,
			Transitions: row.Transitions,
			DurationSec: row.DurationSec,
			CreatedAt:   row.CreatedAt,
		}
		for name := range row.Players {
			rec.Players = append(rec.Players, models.PlayerInfo{Name: name})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (g *GormPostgreSQL) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
