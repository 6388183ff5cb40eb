package store

import "funnelbot/models"

// Setting returns the value for a key, empty when unset.
func (s *Store) Setting(key string) (string, error) {
	var setting models.Setting
	if err := s.db.First(&setting, "key = ?", key).Error; err != nil {
		if notFound(err) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

func (s *Store) SetSetting(key, value string) error {
	return s.db.Save(&models.Setting{Key: key, Value: value}).Error
}
