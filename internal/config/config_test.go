package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orderflow/orderflow/internal/config"
)

func TestDefaults(t *testing.T) {
	d := config.Default()
	assert.Equal(t, 0.92, d.AutoApplyThreshold)
	assert.Equal(t, 0.10, d.AutoApplyGap)
	assert.Equal(t, 5, d.RejectThreshold)
	assert.Equal(t, int64(104_857_600), d.MaxUploadSizeBytes)
}

func TestFromEnvOverride(t *testing.T) {
	t.Setenv("AUTO_APPLY_THRESHOLD", "0.80")
	t.Setenv("REJECT_THRESHOLD", "3")

	c := config.FromEnv()
	assert.Equal(t, 0.80, c.AutoApplyThreshold)
	assert.Equal(t, 3, c.RejectThreshold)
	assert.Equal(t, 0.10, c.AutoApplyGap) // untouched default
}

func TestWithOrgOverride(t *testing.T) {
	base := config.Default()
	thr := 0.75
	c := base.WithOrg(config.OrgOverride{AutoApplyThreshold: &thr})
	assert.Equal(t, 0.75, c.AutoApplyThreshold)
	assert.Equal(t, base.AutoApplyGap, c.AutoApplyGap)
}
