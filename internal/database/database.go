package database

import (
	"fmt"
	"log/slog"

	"github.com/yukikurage/stellar-tasks/internal/config"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// Pure-Go driver registered as "sqlite", used for DB_DRIVER=sqlite.
	_ "modernc.org/sqlite"
)

// Connect opens the database selected by cfg.DBDriver.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1) // prevent SQLITE_BUSY
	}

	slog.Info("database connection established", slog.String("driver", cfg.DBDriver))
	return db, nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.New(sqlite.Config{
			DriverName: "sqlite",
			DSN:        cfg.SQLitePath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		}), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	slog.Info("running database migrations")
	err := db.AutoMigrate(Models()...)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database migrations completed")
	return nil
}

// Models lists the persisted models in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.Notification{},
		&models.NotificationRecipient{},
	}
}
