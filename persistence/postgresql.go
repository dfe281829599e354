// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/turnwell/gameserver/models"
)

// PostgreSQL 不经ORM的实现，适合只需要归档写入的精简部署
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            session_id TEXT NOT NULL,
            formulation TEXT NOT NULL,
            players JSONB NOT NULL,
            winner TEXT,
            completion TEXT,
            transitions INT DEFAULT 0,
            duration_sec INT DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_game_records_session
        ON game_records (session_id)`)
	return err
}

func (p *PostgreSQL) SaveGameRecord(record *models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
        INSERT INTO game_records
            (session_id, formulation, players, winner, completion, transitions, duration_sec)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.SessionID, record.Formulation, players,
		record.Winner, record.Completion, record.Transitions, record.DurationSec)
	return err
}

func (p *PostgreSQL) RecentGameRecords(limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.db.Query(`
        SELECT session_id, formulation, players, winner, completion,
               transitions, duration_sec, created_at
        FROM game_records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		var (
			rec     models.GameRecord
			players []byte
		)
		if err := rows.Scan(&rec.SessionID, &rec.Formulation, &players,
			&rec.Winner, &rec.Completion, &rec.Transitions,
			&rec.DurationSec, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &rec.Players); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
