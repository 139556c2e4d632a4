package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObservabilityConfigEnvValidation(t *testing.T) {
	runLoadCases(t, []loadCase{
		{
			name: "Should load valid observability port and timeout",
			envVars: mergeEnvVars(map[string]string{
				"POLLCONF_OBSERVABILITY_PORT":    "9191",
				"POLLCONF_OBSERVABILITY_TIMEOUT": "1s",
			}),
			want: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "9191", cfg.Observability.Port)
				assert.Equal(t, 1*time.Second, cfg.Observability.Timeout)
				assert.Equal(t, "/healthz", cfg.Observability.LivenessPath)
				assert.Equal(t, "/readyz", cfg.Observability.ReadinessPath)
				assert.Equal(t, "/metrics", cfg.Observability.MetricsPath)
			},
		},
		{
			name:    "Should fail validation on port too low",
			envVars: mergeEnvVars(map[string]string{"POLLCONF_OBSERVABILITY_PORT": "0"}),
			wantErr: true,
		},
		{
			name:    "Should fail validation on port too high",
			envVars: mergeEnvVars(map[string]string{"POLLCONF_OBSERVABILITY_PORT": "65536"}),
			wantErr: true,
		},
		{
			name:    "Should fail validation on timeout too short",
			envVars: mergeEnvVars(map[string]string{"POLLCONF_OBSERVABILITY_TIMEOUT": "999ms"}),
			wantErr: true,
		},
	})
}
