package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigInTestEnvironment(t *testing.T) {
	// go test 下应直接返回默认配置
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8888", cfg.Server.Address)
	assert.Equal(t, 5, cfg.Screening.ChunkSize)
	assert.NotEmpty(t, cfg.AI.APIKeys)
}

func TestMySQLDSN(t *testing.T) {
	c := MySQLConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "app",
		Password: "secret",
		Database: "recruiter",
	}
	assert.Equal(t,
		"app:secret@tcp(db.internal:3307)/recruiter?charset=utf8mb4&parseTime=True&loc=Local",
		c.DSN())
}

func TestMailConfigEnabled(t *testing.T) {
	assert.False(t, MailConfig{}.Enabled())
	assert.False(t, MailConfig{SMTPHost: "smtp.gmail.com"}.Enabled())
	assert.True(t, MailConfig{
		SMTPHost: "smtp.gmail.com",
		Username: "bot@example.com",
		Password: "app-password",
	}.Enabled())
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, GetDuration("90s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute))
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := createDefaultConfig()

	os.Setenv("AI_API_KEYS", "k1, k2 ,k3")
	os.Setenv("MYSQL_HOST", "mysql.prod")
	defer os.Unsetenv("AI_API_KEYS")
	defer os.Unsetenv("MYSQL_HOST")

	applyEnvOverrides(cfg)

	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.AI.APIKeys)
	assert.Equal(t, "mysql.prod", cfg.MySQL.Host)
}
