// services/record_service.go
package services

import (
	"time"

	"github.com/turnwell/gameserver/logger"
	"github.com/turnwell/gameserver/models"
	"github.com/turnwell/gameserver/persistence"
	"github.com/turnwell/gameserver/session"
)

// RecordService archives completed games. Persistence is best effort: a
// write failure is logged and play continues.
type RecordService struct {
	db          persistence.Database
	formulation string
}

func NewRecordService(db persistence.Database, formulation string) *RecordService {
	return &RecordService{db: db, formulation: formulation}
}

// SaveCompleted writes one archive row for a session whose game just
// reached a goal (or was deleted mid-history).
func (s *RecordService) SaveCompleted(sess *session.Session, winner, completion string) {
	if s == nil || s.db == nil {
		return
	}

	record := &models.GameRecord{
		SessionID:   sess.ID,
		Formulation: s.formulation,
		Winner:      winner,
		Completion:  completion,
		Transitions: len(sess.TransitionHistory()),
		DurationSec: int(time.Since(sess.CreatedAt).Seconds()),
	}
	for _, name := range sess.Users() {
		record.Players = append(record.Players, models.PlayerInfo{
			Name:  name,
			Roles: sess.RolesForUser(name),
		})
	}

	if err := s.db.SaveGameRecord(record); err != nil {
		logger.Log.Errorf("Failed to save game record for session %s: %v", sess.ID, err)
	}
}

// Recent returns the latest archived games.
func (s *RecordService) Recent(limit int) ([]models.GameRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return s.db.RecentGameRecords(limit)
}
