package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates the shared tables, one table set per sequence kind, and
// the composite indices the dispatch and analytics queries rely on.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &DeliveryLog{}, &ClickLog{}, &Setting{}); err != nil {
		return fmt.Errorf("migrate shared tables: %w", err)
	}

	for _, kind := range Kinds {
		if err := db.Table(kind.TemplateTable()).AutoMigrate(&MessageTemplate{}); err != nil {
			return fmt.Errorf("migrate %s: %w", kind.TemplateTable(), err)
		}
		if err := db.Table(kind.ButtonTable()).AutoMigrate(&Button{}); err != nil {
			return fmt.Errorf("migrate %s: %w", kind.ButtonTable(), err)
		}
		if err := db.Table(kind.AlbumTable()).AutoMigrate(&AlbumItem{}); err != nil {
			return fmt.Errorf("migrate %s: %w", kind.AlbumTable(), err)
		}
		if err := db.Table(kind.ScheduleTable()).AutoMigrate(&ScheduleEntry{}); err != nil {
			return fmt.Errorf("migrate %s: %w", kind.ScheduleTable(), err)
		}
	}

	indices := []string{
		"CREATE INDEX IF NOT EXISTS idx_delivery_logs_user_step ON delivery_logs (user_id, step)",
		"CREATE INDEX IF NOT EXISTS idx_click_logs_user_step_clicked ON click_logs (user_id, step, clicked_at)",
	}
	for _, kind := range Kinds {
		st := kind.ScheduleTable()
		indices = append(indices,
			fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_user_step ON %s (user_id, step)", st, st),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_sent_due ON %s (sent, due_at)", st, st),
			fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_step ON %s (step)", kind.TemplateTable(), kind.TemplateTable()),
		)
	}
	for _, stmt := range indices {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return seedDefaultSettings(db)
}

func seedDefaultSettings(db *gorm.DB) error {
	defaults := []Setting{
		{Key: SettingWelcomeMessage, Value: "Hi {name}! Thanks for joining. Want me to send you the materials?"},
		{Key: SettingConsentButtonText, Value: "Yes, send them over"},
		{Key: SettingConsentConfirmEnabled, Value: "true"},
		{Key: SettingConsentConfirmMessage, Value: "Great, the first message is on its way."},
		{Key: SettingPaymentSuccessMessage, Value: "Payment received. Welcome aboard, {name}!"},
		{Key: SettingRenewalMessage, Value: "Your subscription has expired. Renew to keep your access."},
		{Key: SettingGoodbyeEnabled, Value: "false"},
		{Key: SettingGoodbyeMessage, Value: "Sorry to see you go, {name}."},
	}
	for _, s := range defaults {
		if err := db.Where(Setting{Key: s.Key}).FirstOrCreate(&s).Error; err != nil {
			return err
		}
	}
	return nil
}
