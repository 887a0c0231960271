package telemetry_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/amdmetrics/internal/device"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/logger"
	"codeberg.org/mutker/amdmetrics/internal/schema"
	"codeberg.org/mutker/amdmetrics/internal/telemetry"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *telemetry.Sample {
	return &telemetry.Sample{
		Timestamp: time.Unix(1700000000, 0),
		Readings: []device.Reading{
			{Device: "renderD128", Category: schema.Temperature, Kind: "temperature", Label: "GFX", Value: 5200},
			{Device: "renderD128", Category: schema.Power, Kind: "power", Label: "Socket", Value: 3400},
			{Device: "renderD128", Category: schema.Frequency, Kind: "frequency", Label: "GFXCLK", Value: 800},
		},
	}
}

func countRows(t *testing.T, path string) int {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM readings").Scan(&n))

	return n
}

func testConfig(t *testing.T) telemetry.Config {
	t.Helper()

	cfg := telemetry.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "telemetry.db")

	return cfg
}

func TestDisabledServiceIsNoop(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "telemetry.db")

	c, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, c.Record(context.Background(), sample()))
	assert.Empty(t, c.Session())
	require.NoError(t, c.Close())

	_, err = os.Stat(cfg.DBPath)
	assert.True(t, os.IsNotExist(err), "disabled collector must not create a database")
}

func TestRecordFlushesOnClose(t *testing.T) {
	cfg := testConfig(t)

	c, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	assert.NotEmpty(t, c.Session())

	require.NoError(t, c.Record(context.Background(), sample()))
	require.NoError(t, c.Close())

	assert.Equal(t, 3, countRows(t, cfg.DBPath))
}

func TestRecordFlushesAtBatchSize(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 3
	cfg.BatchTimeout = time.Hour

	c, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Record(context.Background(), sample()))
	assert.Equal(t, 3, countRows(t, cfg.DBPath))
}

func TestRecordWithoutBatching(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 0
	cfg.BatchTimeout = 0

	c, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, c.Record(context.Background(), sample()))
	assert.Equal(t, 3, countRows(t, cfg.DBPath))
	require.NoError(t, c.Close())
}

func TestRecordStoresSession(t *testing.T) {
	cfg := testConfig(t)

	c, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Record(context.Background(), sample()))
	session := c.Session()
	require.NoError(t, c.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM readings WHERE session = ? AND category = 'frequency' AND value = 800",
		session,
	).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRecordRejectsNilSample(t *testing.T) {
	c, err := telemetry.NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	err = c.Record(context.Background(), nil)
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidSample))
}

func TestRecordHonoursCancelledContext(t *testing.T) {
	c, err := telemetry.NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = c.Record(ctx, sample())
	assert.True(t, errors.HasCode(err, telemetry.ErrOperationTimeout))
}

func TestRecordAfterCloseFails(t *testing.T) {
	c, err := telemetry.NewService(testConfig(t), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	err = c.Record(context.Background(), sample())
	assert.True(t, errors.HasCode(err, telemetry.ErrRecordFailed))
}

func TestInvalidConfig(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""

	_, err := telemetry.NewService(cfg, logger.Nop())
	assert.True(t, errors.HasCode(err, telemetry.ErrInvalidConfig))
}

func TestSchemaVersionMismatchCreatesBackup(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackupDir = filepath.Join(t.TempDir(), "backups")

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`
        CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
        INSERT INTO schema_versions (version, applied_at) VALUES (0, datetime('now'));
        INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'));
        CREATE TABLE readings (legacy TEXT);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c, err := telemetry.NewService(cfg, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Record(context.Background(), sample()))
	require.NoError(t, c.Close())

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "telemetry_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
	assert.Equal(t, 3, countRows(t, cfg.DBPath))
}

func TestGetSchemaVersion(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "v.db"))
	require.NoError(t, err)
	defer db.Close()

	v, err := telemetry.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, telemetry.InitSchema(db, logger.Nop()))

	v, err = telemetry.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, telemetry.SchemaVersion, v)

	exists, err := telemetry.TableExists(db, "readings")
	require.NoError(t, err)
	assert.True(t, exists)
}
