package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_GetWithDefault(t *testing.T) {
	cfg := NewConfig(map[string]string{
		"API_PORT": "9090",
		"EMPTY":    "",
	})

	assert.Equal(t, "9090", cfg.GetWithDefault("API_PORT", "8080"))
	assert.Equal(t, "8080", cfg.GetWithDefault("MISSING", "8080"))

	// Empty values fall back to the default
	assert.Equal(t, "fallback", cfg.GetWithDefault("EMPTY", "fallback"))
}

func TestConfig_GetBool(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{name: "true literal", value: "true", want: true},
		{name: "numeric true", value: "1", want: true},
		{name: "enabled alias", value: "enabled", want: true},
		{name: "on alias", value: "on", want: true},
		{name: "false literal", value: "false", want: false},
		{name: "garbage", value: "banana", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(map[string]string{"KEY": tt.value})
			assert.Equal(t, tt.want, cfg.GetBool("KEY"))
		})
	}
}

func TestConfig_GetIntWithDefault(t *testing.T) {
	cfg := NewConfig(map[string]string{"BATCH_SIZE": "25"})

	assert.Equal(t, 25, cfg.GetIntWithDefault("BATCH_SIZE", 50))
	assert.Equal(t, 50, cfg.GetIntWithDefault("MISSING", 50))
}

func TestConfig_GetDuration(t *testing.T) {
	cfg := NewConfig(map[string]string{
		"PACE_INTERVAL": "2s",
		"BAD":           "two seconds",
	})

	assert.Equal(t, 2*time.Second, cfg.GetDuration("PACE_INTERVAL", time.Second))
	assert.Equal(t, time.Second, cfg.GetDuration("MISSING", time.Second))
	assert.Equal(t, time.Second, cfg.GetDuration("BAD", time.Second))
}

func TestConfig_SetAndHas(t *testing.T) {
	cfg := NewConfig(nil)

	assert.False(t, cfg.Has("CRON_SECRET"))
	cfg.Set("CRON_SECRET", "hunter2")
	assert.True(t, cfg.Has("CRON_SECRET"))
	assert.Equal(t, "hunter2", cfg.Get("CRON_SECRET"))
}
