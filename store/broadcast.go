package store

import (
	"fmt"
	"time"

	"funnelbot/models"
)

// CreateMassBroadcast stores the text as the next mass template step and
// schedules it, due immediately, for every user who completed the funnel.
// Returns the number of recipients enrolled.
func (s *Store) CreateMassBroadcast(text string, at time.Time) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("broadcast text is empty")
	}
	if len(text) > models.MaxBodyLength {
		return 0, fmt.Errorf("broadcast text exceeds %d characters", models.MaxBodyLength)
	}

	var lastStep int
	err := s.db.Table(models.KindMass.TemplateTable()).
		Select("COALESCE(MAX(step), 0)").Scan(&lastStep).Error
	if err != nil {
		return 0, err
	}

	template := models.MessageTemplate{Step: lastStep + 1, Body: text}
	if err := s.CreateTemplate(models.KindMass, &template); err != nil {
		return 0, err
	}

	audience, err := s.CompletedFunnelUserIDs()
	if err != nil {
		return 0, err
	}
	if err := s.EnrollStep(audience, models.KindMass, template.Step, at); err != nil {
		return 0, err
	}
	return len(audience), nil
}
