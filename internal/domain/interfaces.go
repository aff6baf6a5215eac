package domain

import (
	"context"
	"time"

	"agenda/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type ShowRepository interface {
	CreateShow(ctx context.Context, show *models.Show) error
	UpdateShow(ctx context.Context, show *models.Show) error
	DeleteShow(ctx context.Context, id int64) error
	GetShow(ctx context.Context, id int64) (*models.Show, error)
	ListShows(ctx context.Context) ([]models.Show, error)
	ListShowsByDate(ctx context.Context, date string) ([]models.Show, error)
	ListShowsBetween(ctx context.Context, from, to string) ([]models.Show, error)
}

type LocationRepository interface {
	ListLocations(ctx context.Context) ([]models.Location, error)
	GetLocation(ctx context.Context, id int64) (*models.Location, error)
	CreateLocation(ctx context.Context, location *models.Location) error
	RenameLocation(ctx context.Context, id int64, name string) error
	DeleteLocation(ctx context.Context, id int64) error
	SeedLocations(ctx context.Context, names []string) (int, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByCPF(ctx context.Context, cpf string) (*models.User, error)
	GetAdmin(ctx context.Context) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetUserBlocked(ctx context.Context, cpf string, blocked bool) error
	SetSubscription(ctx context.Context, cpf string, sub *models.Subscription, blocked bool) error
	DeleteUser(ctx context.Context, cpf string) error
}

// KVStore is the key-value storage port used for sessions and small settings.
// Get reports false when the key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type SyncQueueRepository interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// SheetsWriter mirrors shows into a spreadsheet.
type SheetsWriter interface {
	UpsertShow(ctx context.Context, show *models.Show) error
	DeleteShowRow(ctx context.Context, showID int64) error
}

type SyncWorker interface {
	EnqueueUpsert(ctx context.Context, show *models.Show) error
	EnqueueDelete(ctx context.Context, showID int64) error
}

// TelegramService is the part of the Bot API the command bot polls and replies through.
type TelegramService interface {
	TelegramSender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}
