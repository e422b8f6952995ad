// Package config loads the process-wide environment tunables of spec §6
// into a typed struct. It replaces the "dynamic named config" pattern
// (free-form settings_json) flagged in the design notes: every field is
// named, typed, and defaulted here; an org's OrgSettings
// (internal/model) only ever overrides these defaults field-by-field,
// it never introduces a new key.
package config

import (
	"os"
	"strconv"
	"time"
)

// Tunables holds the process-wide defaults of §6.
type Tunables struct {
	DailyBudgetMicros      int64
	MaxUploadSizeBytes     int64
	MaxBatchUploadFiles    int
	PriceTolerancePercent  float64
	AutoApplyThreshold     float64
	AutoApplyGap           float64
	RejectThreshold        int
	AckPollInterval        time.Duration
	RetentionRunHourUTC    int
	RawDocumentRetentionDays int
	AICallLogRetentionDays  int
	IdempotencyTTL          time.Duration
}

// Default returns the documented §6 defaults.
func Default() Tunables {
	return Tunables{
		DailyBudgetMicros:        0, // 0 = unlimited
		MaxUploadSizeBytes:       104_857_600,
		MaxBatchUploadFiles:      10,
		PriceTolerancePercent:    5,
		AutoApplyThreshold:       0.92,
		AutoApplyGap:             0.10,
		RejectThreshold:          5,
		AckPollInterval:          60 * time.Second,
		RetentionRunHourUTC:      2,
		RawDocumentRetentionDays: 365,
		AICallLogRetentionDays:   90,
		IdempotencyTTL:           24 * time.Hour,
	}
}

// FromEnv overlays environment variables onto the documented defaults,
// the way the teacher's cmd/root.go initConfig overlays LLM_* env vars
// onto unset CLI flags — generalized to every §6 tunable.
func FromEnv() Tunables {
	t := Default()
	if v := os.Getenv("DAILY_BUDGET_MICROS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.DailyBudgetMicros = n
		}
	}
	if v := os.Getenv("MAX_UPLOAD_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			t.MaxUploadSizeBytes = n
		}
	}
	if v := os.Getenv("MAX_BATCH_UPLOAD_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.MaxBatchUploadFiles = n
		}
	}
	if v := os.Getenv("PRICE_TOLERANCE_PERCENT"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			t.PriceTolerancePercent = n
		}
	}
	if v := os.Getenv("AUTO_APPLY_THRESHOLD"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			t.AutoApplyThreshold = n
		}
	}
	if v := os.Getenv("AUTO_APPLY_GAP"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			t.AutoApplyGap = n
		}
	}
	if v := os.Getenv("REJECT_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.RejectThreshold = n
		}
	}
	if v := os.Getenv("ACK_POLL_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.AckPollInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("RETENTION_RUN_HOUR_UTC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.RetentionRunHourUTC = n
		}
	}
	if v := os.Getenv("RAW_DOCUMENT_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.RawDocumentRetentionDays = n
		}
	}
	if v := os.Getenv("AI_CALL_LOG_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.AICallLogRetentionDays = n
		}
	}
	if v := os.Getenv("IDEMPOTENCY_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			t.IdempotencyTTL = time.Duration(n) * time.Hour
		}
	}
	return t
}

// OrgOverride merges an org's typed OrgSettings over the process
// defaults. Zero-valued org fields mean "use the process default".
type OrgOverride struct {
	PriceTolerancePercent *float64
	AutoApplyThreshold    *float64
	AutoApplyGap          *float64
	RejectThreshold       *int
	DailyBudgetMicros     *int64
}

func (t Tunables) WithOrg(o OrgOverride) Tunables {
	if o.PriceTolerancePercent != nil {
		t.PriceTolerancePercent = *o.PriceTolerancePercent
	}
	if o.AutoApplyThreshold != nil {
		t.AutoApplyThreshold = *o.AutoApplyThreshold
	}
	if o.AutoApplyGap != nil {
		t.AutoApplyGap = *o.AutoApplyGap
	}
	if o.RejectThreshold != nil {
		t.RejectThreshold = *o.RejectThreshold
	}
	if o.DailyBudgetMicros != nil {
		t.DailyBudgetMicros = *o.DailyBudgetMicros
	}
	return t
}
