package store

import (
	"fmt"
	"time"

	"funnelbot/funnel"
	"funnelbot/models"

	"gorm.io/gorm/clause"
)

// eligibilityPredicate returns the SQL condition a user row must satisfy
// for entries of the kind to be selected for dispatch.
func eligibilityPredicate(kind models.Kind) string {
	switch kind {
	case models.KindFunnel:
		return "u.active AND u.engaged AND NOT u.paid"
	case models.KindPaid:
		return "u.active AND u.paid"
	default:
		return "u.active AND u.engaged"
	}
}

// Enroll writes one schedule row per template of the kind, anchored at the
// given time. ON CONFLICT DO NOTHING on (user_id, step) makes repeat
// enrollment a fixpoint.
func (s *Store) Enroll(userID int64, kind models.Kind, anchor time.Time) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return funnel.ErrUserIneligible
	}
	if kind == models.KindFunnel && user.Paid {
		return funnel.ErrUserIneligible
	}

	templates, err := s.ListTemplates(kind)
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return nil
	}

	entries := make([]models.ScheduleEntry, 0, len(templates))
	for _, t := range templates {
		due := anchor.Add(time.Duration(t.DelayHours * float64(time.Hour)))
		entries = append(entries, models.ScheduleEntry{
			UserID: userID,
			Step:   t.Step,
			DueAt:  due,
		})
	}

	err = s.db.Table(kind.ScheduleTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "step"}},
		DoNothing: true,
	}).Create(&entries).Error
	if err != nil {
		return fmt.Errorf("enroll user %d into %s: %w", userID, kind, err)
	}
	return nil
}

// EnrollStep schedules a single step for a set of users, all due at the
// same time. Used for mass broadcasts.
func (s *Store) EnrollStep(userIDs []int64, kind models.Kind, step int, dueAt time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	entries := make([]models.ScheduleEntry, 0, len(userIDs))
	for _, id := range userIDs {
		entries = append(entries, models.ScheduleEntry{UserID: id, Step: step, DueAt: dueAt})
	}
	return s.db.Table(kind.ScheduleTable()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "step"}},
		DoNothing: true,
	}).CreateInBatches(&entries, 500).Error
}

// DueEntries selects unsent entries due by now for eligible users, oldest
// first. The limit bounds one tick's work.
func (s *Store) DueEntries(kind models.Kind, now time.Time, limit int) ([]models.ScheduleEntry, error) {
	var entries []models.ScheduleEntry
	query := fmt.Sprintf(`
        SELECT e.* FROM %s e
        JOIN users u ON u.id = e.user_id
        WHERE e.sent = false AND e.due_at <= ? AND %s
        ORDER BY e.due_at ASC
        LIMIT ?
    `, kind.ScheduleTable(), eligibilityPredicate(kind))
	err := s.db.Raw(query, now, limit).Scan(&entries).Error
	return entries, err
}

// MarkSent consumes a schedule slot with a compare-and-swap on sent. A
// zero-row update means another task already consumed it.
func (s *Store) MarkSent(kind models.Kind, entryID uint) error {
	res := s.db.Table(kind.ScheduleTable()).
		Where("id = ? AND sent = ?", entryID, false).
		Update("sent", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return funnel.ErrStoreConflict
	}
	return nil
}

func (s *Store) PurgeUnsent(userID int64, kind models.Kind) (int64, error) {
	res := s.db.Table(kind.ScheduleTable()).
		Where("user_id = ? AND sent = ?", userID, false).
		Delete(&models.ScheduleEntry{})
	return res.RowsAffected, res.Error
}

// PeekNextUnsent returns the user's next pending entry by step order, or
// nil when the sequence is exhausted.
func (s *Store) PeekNextUnsent(userID int64, kind models.Kind) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := s.db.Table(kind.ScheduleTable()).
		Where("user_id = ? AND sent = ?", userID, false).
		Order("step ASC").First(&entry).Error
	if err != nil {
		if notFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// CompletedFunnelUserIDs is the built-in mass audience: users who received
// the final funnel step.
func (s *Store) CompletedFunnelUserIDs() ([]int64, error) {
	var lastStep int
	err := s.db.Table(models.KindFunnel.TemplateTable()).
		Select("COALESCE(MAX(step), 0)").Scan(&lastStep).Error
	if err != nil {
		return nil, err
	}
	if lastStep == 0 {
		return nil, nil
	}

	var ids []int64
	err = s.db.Model(&models.DeliveryLog{}).
		Distinct("delivery_logs.user_id").
		Joins("JOIN users u ON u.id = delivery_logs.user_id").
		Where("delivery_logs.kind = ? AND delivery_logs.step = ? AND u.active AND u.engaged",
			string(models.KindFunnel), lastStep).
		Pluck("delivery_logs.user_id", &ids).Error
	return ids, err
}
