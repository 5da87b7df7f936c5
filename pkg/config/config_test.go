package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2025, cfg.Import.SchoolYear)
	assert.Nil(t, cfg.Import.SubjectOrder)
	assert.Equal(t, 3, cfg.Import.NameBufferCap)
	assert.Equal(t, 30*time.Second, cfg.Import.DocumentTimeout)
	assert.Empty(t, cfg.Import.CronSchedule)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("IMPORT_SCHOOL_YEAR", "2024")
	t.Setenv("IMPORT_SUBJECT_ORDER", "Português, Matemática,,Arte")
	t.Setenv("IMPORT_DOCUMENT_TIMEOUT", "5s")
	t.Setenv("IMPORT_CRON_SCHEDULE", "*/5 * * * *")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2024, cfg.Import.SchoolYear)
	assert.Equal(t, []string{"Português", "Matemática", "Arte"}, cfg.Import.SubjectOrder)
	assert.Equal(t, 5*time.Second, cfg.Import.DocumentTimeout)
	assert.Equal(t, "*/5 * * * *", cfg.Import.CronSchedule)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("IMPORT_SCHOOL_YEAR", "25")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	t.Setenv("IMPORT_WORKERS", "many")
	t.Setenv("IMPORT_DOCUMENT_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Import.Workers)
	assert.Equal(t, 30*time.Second, cfg.Import.DocumentTimeout)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "report-cards", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=report-cards sslmode=disable", c.DSN())
}
