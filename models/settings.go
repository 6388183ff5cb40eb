package models

// Setting is a single admin-editable text value.
type Setting struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

// Recognized setting keys.
const (
	SettingWelcomeMessage        = "welcome_message"
	SettingConsentButtonText     = "consent_button_text"
	SettingConsentConfirmEnabled = "consent_confirm_enabled"
	SettingConsentConfirmMessage = "consent_confirm_message"
	SettingPaymentSuccessMessage = "payment_success_message"
	SettingRenewalMessage        = "renewal_message"
	SettingGoodbyeEnabled        = "goodbye_enabled"
	SettingGoodbyeMessage        = "goodbye_message"
)
