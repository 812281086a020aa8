package redis

const (
	// KeySettingsCurrent holds the live settings document.
	KeySettingsCurrent = "encore:settings:current"
	// KeySettingsPrevious holds the document replaced by the last save.
	KeySettingsPrevious = "encore:settings:previous"
	// KeySettingsUpdatedAt holds the unix time of the last save.
	KeySettingsUpdatedAt = "encore:settings:updated_at"
)
