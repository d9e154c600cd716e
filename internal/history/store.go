package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Araaditya/WhatsEase-dev-task/internal/domain"
)

// Record is the gorm model backing the messages table. Insertion order (the
// auto-increment id) is the canonical room ordering.
type Record struct {
	ID         uint   `gorm:"primaryKey"`
	Room       string `gorm:"index;size:128;not null"`
	SenderID   string `gorm:"size:255;not null"`
	SenderName string `gorm:"size:255"`
	Bot        bool   `gorm:"not null;default:false"`
	Content    string `gorm:"type:text;not null"`
	CreatedAt  time.Time
}

func (Record) TableName() string { return "messages" }

func (r Record) toMessage() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        r.ID,
		Room:      r.Room,
		SenderID:  r.SenderID,
		Sender:    r.SenderName,
		Bot:       r.Bot,
		Content:   r.Content,
		Timestamp: r.CreatedAt,
	}
}

// Store is the gorm-backed history store.
type Store struct {
	db *gorm.DB
}

// NewPostgresStore connects to Postgres and migrates the messages table.
func NewPostgresStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return newStore(db)
}

// NewSQLiteStore opens a SQLite database at the given path. ":memory:" gives
// an ephemeral store for tests and local runs without Postgres.
func NewSQLiteStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	return newStore(db)
}

func newStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate messages table: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts a message and returns it with the assigned id and timestamp.
func (s *Store) Append(ctx context.Context, room string, author domain.Identity, bot bool, body string) (domain.ChatMessage, error) {
	rec := Record{
		Room:       room,
		SenderID:   author.UserID,
		SenderName: author.Name,
		Bot:        bot,
		Content:    body,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: append: %v", domain.ErrStorageUnavailable, err)
	}
	return rec.toMessage(), nil
}

// Read returns up to limit messages for the room, oldest first. With a
// positive limit the most recent messages win.
func (s *Store) Read(ctx context.Context, room string, limit int) ([]domain.ChatMessage, error) {
	var recs []Record
	q := s.db.WithContext(ctx).Where("room = ?", room)

	if limit > 0 {
		// Newest N, then flip back to chronological order.
		if err := q.Order("id DESC").Limit(limit).Find(&recs).Error; err != nil {
			return nil, fmt.Errorf("%w: read: %v", domain.ErrStorageUnavailable, err)
		}
		msgs := make([]domain.ChatMessage, len(recs))
		for i, r := range recs {
			msgs[len(recs)-1-i] = r.toMessage()
		}
		return msgs, nil
	}

	if err := q.Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: read: %v", domain.ErrStorageUnavailable, err)
	}
	msgs := make([]domain.ChatMessage, len(recs))
	for i, r := range recs {
		msgs[i] = r.toMessage()
	}
	return msgs, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
