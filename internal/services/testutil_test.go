package services

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"carelink-server/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

// fakeClock is a settable Clock for driving time-dependent behavior.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Set(t time.Time) { c.now = t }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

// recordingNotifier captures sent messages and can be told to fail for
// specific recipients.
type recordingNotifier struct {
	sent    []sentMessage
	failFor map[string]bool
}

type sentMessage struct {
	To      string
	Message string
}

func (n *recordingNotifier) Send(to, message string) error {
	if n.failFor[to] {
		return errSendFailed
	}
	n.sent = append(n.sent, sentMessage{To: to, Message: message})
	return nil
}

var errSendFailed = errors.New("sms gateway unavailable")

func createPatient(t *testing.T, db *gorm.DB, phone, name string) *models.User {
	t.Helper()
	user := &models.User{
		Phone:      phone,
		Name:       name,
		Password:   "hashed",
		Role:       models.RolePatient,
		IsVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createHospital(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        name + "@example.com",
		Name:         "Dr. Admin",
		HospitalName: name,
		Password:     "hashed",
		Role:         models.RoleHospital,
		IsVerified:   true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func notificationsFor(t *testing.T, db *gorm.DB, userID string) []models.Notification {
	t.Helper()
	var notifications []models.Notification
	require.NoError(t, db.Where("user_id = ?", userID).Find(&notifications).Error)
	return notifications
}
