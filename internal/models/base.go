package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dental-clinic-server/internal/store"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN     string
	Verbose bool
}

// OpenDB opens the MySQL connection without touching the schema.
func OpenDB(config DatabaseConfig) (*gorm.DB, error) {
	level := logger.Warn
	if config.Verbose {
		level = logger.Info
	}
	return gorm.Open(mysql.Open(config.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
}

// Migrate creates or updates every table the server uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Admin{},
		&RefreshToken{},
		&Appointment{},
		&Report{},
		&Medicine{},
		&Document{},
		&ContactMessage{},
	)
}

// InitDB initializes the database connection and migrates the schema.
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	db, err := OpenDB(config)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Collections maps the document-store collections onto the tables above.
// Indexed lists the columns listing queries may filter on.
func Collections() map[string]store.Collection {
	return map[string]store.Collection{
		store.Appointments: {
			New: func() interface{} { return &Appointment{} },
			Fields: []string{
				"name", "phone", "email", "service_name", "preferred_date",
				"preferred_time", "at", "notes", "status", "appointment_id",
			},
			Indexed: []string{"name", "phone", "email", "preferred_date", "status", "appointment_id"},
		},
		store.Reports: {
			New:     func() interface{} { return &Report{} },
			Fields:  []string{"appointment_id", "diagnosis", "observations", "treatment", "next_visit"},
			Indexed: []string{"appointment_id"},
		},
		store.Medicines: {
			New:     func() interface{} { return &Medicine{} },
			Fields:  []string{"report_id", "name", "dosage"},
			Indexed: []string{"report_id"},
		},
		store.Documents: {
			New:     func() interface{} { return &Document{} },
			Fields:  []string{"report_id", "name", "url", "type"},
			Indexed: []string{"report_id"},
		},
		store.ContactMessages: {
			New:     func() interface{} { return &ContactMessage{} },
			Fields:  []string{"name", "phone", "email", "messages", "status", "read_at"},
			Indexed: []string{"status", "email"},
		},
	}
}
