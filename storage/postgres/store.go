package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	models "Cueline/models/postgres"
)

// Store is the GORM-backed implementation of the queue storage port. The
// persisted shape mirrors the domain model exactly: sessions, queue_entries
// and game_records with a jsonb snapshot column.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- sessions ---

func (s *Store) InsertSession(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *Store) UpdateSession(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"status":        session.Status,
			"game_mode":     session.GameMode,
			"rule_tags":     session.RuleTags,
			"last_activity": session.LastActivity,
		}).Error
}

func (s *Store) ActiveSessionByCode(ctx context.Context, tableCode string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("table_code = ? AND status = ?", tableCode, models.SessionActive).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) ActiveSessions(ctx context.Context) ([]*models.Session, error) {
	var sessions []*models.Session
	err := s.db.WithContext(ctx).
		Where("status = ?", models.SessionActive).
		Order("created_at").
		Find(&sessions).Error
	return sessions, err
}

// CloseSession marks the session closed and wipes its entries and game log
// in one transaction.
func (s *Store) CloseSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.QueueEntry{}).Error; err != nil {
			return fmt.Errorf("error wiping entries of session %s: %v", sessionID, err)
		}
		if err := tx.Where("session_id = ?", sessionID).Delete(&models.GameRecord{}).Error; err != nil {
			return fmt.Errorf("error wiping game records of session %s: %v", sessionID, err)
		}
		return tx.Model(&models.Session{}).
			Where("id = ?", sessionID).
			Update("status", models.SessionClosed).Error
	})
}

// --- queue entries ---

func (s *Store) InsertEntry(ctx context.Context, entry *models.QueueEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) UpdateEntries(ctx context.Context, entries ...*models.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if err := tx.Save(entry).Error; err != nil {
				return fmt.Errorf("error saving entry %s: %v", entry.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) EntriesBySession(ctx context.Context, sessionID string) ([]*models.QueueEntry, error) {
	var entries []*models.QueueEntry
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("joined_at, id").
		Find(&entries).Error
	return entries, err
}

// --- game records ---

func (s *Store) InsertGame(ctx context.Context, game *models.GameRecord) error {
	return s.db.WithContext(ctx).Create(game).Error
}

func (s *Store) DeleteGame(ctx context.Context, gameID string) error {
	return s.db.WithContext(ctx).Where("id = ?", gameID).Delete(&models.GameRecord{}).Error
}

func (s *Store) LatestGame(ctx context.Context, sessionID string) (*models.GameRecord, error) {
	return s.latestGame(ctx, s.db.WithContext(ctx).Where("session_id = ?", sessionID))
}

func (s *Store) LatestGameWithSnapshot(ctx context.Context, sessionID string) (*models.GameRecord, error) {
	return s.latestGame(ctx, s.db.WithContext(ctx).
		Where("session_id = ? AND snapshot IS NOT NULL", sessionID))
}

func (s *Store) latestGame(ctx context.Context, query *gorm.DB) (*models.GameRecord, error) {
	var game models.GameRecord
	err := query.Order("created_at DESC").First(&game).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *Store) GamesBySession(ctx context.Context, sessionID string) ([]*models.GameRecord, error) {
	var games []*models.GameRecord
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at").
		Find(&games).Error
	return games, err
}

func (s *Store) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.GameRecord{}).
		Where("created_at < ? AND snapshot IS NOT NULL", before).
		Update("snapshot", nil)
	return result.RowsAffected, result.Error
}
