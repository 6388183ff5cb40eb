package store

import (
	"time"

	"funnelbot/models"
)

func (s *Store) LogDelivery(userID int64, kind models.Kind, step int, at time.Time) error {
	return s.db.Create(&models.DeliveryLog{
		UserID:      userID,
		Kind:        string(kind),
		Step:        step,
		DeliveredAt: at,
	}).Error
}

func (s *Store) LogClick(userID int64, kind models.Kind, step int, buttonKind, buttonText string, at time.Time) error {
	return s.db.Create(&models.ClickLog{
		UserID:     userID,
		Kind:       string(kind),
		Step:       step,
		ButtonKind: buttonKind,
		ButtonText: buttonText,
		ClickedAt:  at,
	}).Error
}

// LastDeliveredStep returns the highest step delivered to the user for the
// kind, or 0 when nothing was delivered yet.
func (s *Store) LastDeliveredStep(userID int64, kind models.Kind) (int, error) {
	var step int
	err := s.db.Model(&models.DeliveryLog{}).
		Where("user_id = ? AND kind = ?", userID, string(kind)).
		Select("COALESCE(MAX(step), 0)").Scan(&step).Error
	return step, err
}

// PruneLogs deletes delivery and click rows older than the cutoff and
// returns the total removed.
func (s *Store) PruneLogs(olderThan time.Time) (int64, error) {
	res := s.db.Where("delivered_at < ?", olderThan).Delete(&models.DeliveryLog{})
	if res.Error != nil {
		return 0, res.Error
	}
	total := res.RowsAffected

	res = s.db.Where("clicked_at < ?", olderThan).Delete(&models.ClickLog{})
	if res.Error != nil {
		return total, res.Error
	}
	return total + res.RowsAffected, nil
}
