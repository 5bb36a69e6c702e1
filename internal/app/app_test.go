package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/attendance"
	"qrattend/internal/config"
	"qrattend/internal/httpmiddleware"
)

const scheduleYAML = `
terms:
  - id: 1
    name: 2026-I
    start_date: "2026-02-01"
    end_date: "2026-07-31"
slots:
  - id: 1
    term_id: 1
    weekday: monday
    start: "08:00"
    end: "09:30"
    room: A-101
    subject: Algebra
    group: A
    teacher_id: 10
`

func memoryConfig(t *testing.T) config.App {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scheduleYAML), 0o600))
	return config.App{
		StoreBackend:     "memory",
		QueueBackend:     "memory",
		RateLimitBackend: "memory",
		ScheduleFile:     path,
		TokenSecret:      "secret",
		TokenTTL:         2 * time.Hour,
		SessionGrace:     time.Hour,
		RateLimitPerMin:  10,
	}
}

func TestNewMemoryBackends(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Jobs)
	assert.IsType(t, &attendance.MemoryRepository{}, a.Repo)
	assert.IsType(t, &httpmiddleware.SimpleTokenBucket{}, a.Limiter())

	// 2026-03-02 is a Monday; the default location is UTC
	res, err := a.Sweeper.Sweep(context.Background(), time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.StoreBackend = "sqlite"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = memoryConfig(t)
	cfg.ScheduleFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = memoryConfig(t)
	cfg.TokenSecret = ""
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
