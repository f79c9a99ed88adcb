package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stellar-tasks/internal/config"
	"github.com/yukikurage/stellar-tasks/internal/database"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errConnRefused = errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{
		DBDriver:   "sqlite",
		SQLitePath: ":memory:",
		GinMode:    "release",
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateDatabase(db))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.Close()
	})
	return db
}

// newBrokenDB returns a mysql-dialect DB whose every query fails.
func newBrokenDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 10; i++ {
		mock.ExpectQuery(".*").WillReturnError(errConnRefused)
		mock.ExpectExec(".*").WillReturnError(errConnRefused)
		mock.ExpectBegin().WillReturnError(errConnRefused)
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Username: username, Name: username, PasswordHash: "hash", Role: role}
	require.NoError(t, db.Create(user).Error)
	return user
}

// fixedClock returns a clock that advances by step on every call.
func fixedClock(start time.Time, step time.Duration) Clock {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}
