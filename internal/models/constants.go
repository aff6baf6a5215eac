package models

const (
	SyncUpsert = "upsert"
	SyncDelete = "delete"
)

const (
	SyncStatusPending    = "pending"
	SyncStatusProcessing = "processing"
	SyncStatusRetry      = "retry"
	SyncStatusCompleted  = "completed"
	SyncStatusFailed     = "failed"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// ReminderHour is the default hour for next-day reminders.
	ReminderHour = 9

	// SubscriptionDays is the default subscription length.
	SubscriptionDays = 30

	DefaultArtistName = "Seu Nome de Artista"

	// SheetsCacheTTL is how long the Sheets row cache stays fresh.
	SheetsCacheTTL = 60 * 60
)

// Settings keys stored through the key-value port.
const (
	KeyArtistInfo    = "artistInfo"
	KeyAdminSession  = "session:admin"
	KeyActiveUserCPF = "session:user"
)
