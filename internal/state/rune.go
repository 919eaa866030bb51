package state

import (
	"context"

	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/db"
	"gorm.io/gorm/clause"
)

// GetSupportedRune returns gorm.ErrRecordNotFound when the rune is not bridged
func (s *State) GetSupportedRune(ctx context.Context, runeID string) (*db.SupportedRune, error) {
	s.runeMu.RLock()
	defer s.runeMu.RUnlock()

	var r db.SupportedRune
	result := s.dbm.GetDB().WithContext(ctx).Where("id = ?", runeID).First(&r)
	if result.Error != nil {
		return nil, result.Error
	}
	return &r, nil
}

func (s *State) GetSupportedRunes(ctx context.Context) ([]db.SupportedRune, error) {
	s.runeMu.RLock()
	defer s.runeMu.RUnlock()

	var runes []db.SupportedRune
	if err := s.dbm.GetDB().WithContext(ctx).Order("number asc").Find(&runes).Error; err != nil {
		return nil, apperr.Persistence(err, "failed to load supported runes")
	}
	return runes, nil
}

func (s *State) SaveSupportedRune(ctx context.Context, r *db.SupportedRune) error {
	s.runeMu.Lock()
	defer s.runeMu.Unlock()

	result := s.dbm.GetDB().WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(r)
	if result.Error != nil {
		return apperr.Persistence(result.Error, "failed to save rune %s", r.ID)
	}
	return nil
}
