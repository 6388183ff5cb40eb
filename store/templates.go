package store

import (
	"fmt"

	"funnelbot/funnel"
	"funnelbot/models"
)

func (s *Store) GetTemplate(kind models.Kind, step int) (*models.MessageTemplate, error) {
	var t models.MessageTemplate
	err := s.db.Table(kind.TemplateTable()).Where("step = ?", step).First(&t).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("%s step %d: %w", kind, step, funnel.ErrTemplateMissing)
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTemplates(kind models.Kind) ([]models.MessageTemplate, error) {
	var templates []models.MessageTemplate
	err := s.db.Table(kind.TemplateTable()).Order("step ASC").Find(&templates).Error
	return templates, err
}

func (s *Store) GetButtons(kind models.Kind, step int) ([]models.Button, error) {
	var buttons []models.Button
	err := s.db.Table(kind.ButtonTable()).Where("step = ?", step).
		Order("position ASC").Find(&buttons).Error
	if err != nil {
		return nil, err
	}
	if max := models.MaxButtons(kind); len(buttons) > max {
		buttons = buttons[:max]
	}
	return buttons, nil
}

func (s *Store) GetAlbum(kind models.Kind, step int) ([]models.AlbumItem, error) {
	var items []models.AlbumItem
	err := s.db.Table(kind.AlbumTable()).Where("step = ?", step).
		Order("position ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	if err := models.ValidateAlbum(items); err != nil {
		return nil, fmt.Errorf("%s step %d: %w", kind, step, err)
	}
	return items, nil
}

// CreateTemplate inserts a template row for the kind. Used by the admin
// broadcast paths; funnel content editing lives outside this service.
func (s *Store) CreateTemplate(kind models.Kind, t *models.MessageTemplate) error {
	if len(t.Body) > models.MaxBodyLength {
		return fmt.Errorf("template body exceeds %d characters", models.MaxBodyLength)
	}
	return s.db.Table(kind.TemplateTable()).Create(t).Error
}
