package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"gcquality/internal/shared/testutil"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		store       Pinger
		wantStatus  string
		storeStatus string
	}{
		{"store disabled", nil, "ok", "disabled"},
		{"store ready", fakePinger{}, "ok", "ready"},
		{"store failing", fakePinger{err: errors.New("database is locked")}, "degraded", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			hs := NewHealthService("1.0.0", tt.store, logger)

			status := hs.HealthCheck(context.Background())
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "1.0.0", status.Version)
			assert.Equal(t, tt.storeStatus, status.Services["store"].Status)
			assert.Contains(t, status.Runtime, "go_version")
		})
	}
}
