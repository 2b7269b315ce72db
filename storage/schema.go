package storage

import "time"

// CachedSession mirrors a backend session in the local cache. The cache is
// never authoritative: it is refreshed from GET /api/sessions and only
// mutated locally by removing a deleted entry.
type CachedSession struct {
	ID            string    `gorm:"primaryKey"`
	CreatedAt     time.Time `gorm:"not null;index:idx_created_at"`
	MessageCount  int       `gorm:"not null;default:0"`
	WorkspacePath string    `gorm:"default:''"`
	ActiveRepo    string    `gorm:"default:''"`
	RefreshedAt   time.Time `gorm:"not null;index:idx_refreshed_at"`
}

// TableName keeps the table name stable across gorm naming changes
func (CachedSession) TableName() string {
	return "cached_sessions"
}
