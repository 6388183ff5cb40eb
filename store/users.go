package store

import (
	"fmt"
	"time"

	"funnelbot/funnel"
	"funnelbot/models"
	"funnelbot/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertUser creates the user on first contact or refreshes the profile
// fields. Re-joining reactivates a previously departed user; the other
// lifecycle flags are never touched here.
func (s *Store) UpsertUser(id int64, username, displayName string) error {
	user := models.User{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		Active:      true,
		JoinedAt:    time.Now(),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "display_name", "active", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", id, err)
	}
	return nil
}

func (s *Store) GetUser(id int64) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) MarkEngaged(id int64) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).
		Update("engaged", true).Error
}

// MarkPaid flips the paid flags and deletes the user's unsent funnel
// schedule entries in one transaction. Returns ErrUserIneligible when the
// user is already paid, so repeated payment events stay no-ops.
func (s *Store) MarkPaid(id int64, amount int64, until, at time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if notFound(err) {
				return funnel.ErrUserIneligible
			}
			return err
		}
		if user.Paid {
			return funnel.ErrUserIneligible
		}

		err := tx.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
			"paid":        true,
			"paid_until":  until,
			"paid_amount": amount,
			"paid_at":     utils.Pointer(at),
		}).Error
		if err != nil {
			return err
		}

		return tx.Table(models.KindFunnel.ScheduleTable()).
			Where("user_id = ? AND sent = ?", id, false).
			Delete(&models.ScheduleEntry{}).Error
	})
}

func (s *Store) MarkExpired(id int64) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"paid":       false,
		"paid_until": nil,
	}).Error
}

func (s *Store) Deactivate(id int64) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).
		Update("active", false).Error
}

// ExpiredOn returns paid users whose subscription ends on the given day.
func (s *Store) ExpiredOn(date time.Time) ([]models.User, error) {
	var users []models.User
	err := s.db.Where("paid = ? AND DATE(paid_until) = ?", true, date.Format("2006-01-02")).
		Find(&users).Error
	return users, err
}
