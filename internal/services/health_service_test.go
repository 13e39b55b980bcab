package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedCounter int

func (f fixedCounter) ClientCount() int { return int(f) }

func TestHealthServiceCheck(t *testing.T) {
	tests := []struct {
		name       string
		opts       func(t *testing.T) HealthOptions
		wantStatus string
		wantLLM    string
	}{
		{
			name: "healthy",
			opts: func(t *testing.T) HealthOptions {
				return HealthOptions{Version: "1.0", OutputDir: t.TempDir(), LLMProvider: "deepseek", LLMReady: true, Hub: fixedCounter(2)}
			},
			wantStatus: StatusHealthy,
			wantLLM:    StatusHealthy,
		},
		{
			name: "degraded without llm",
			opts: func(t *testing.T) HealthOptions {
				return HealthOptions{OutputDir: t.TempDir()}
			},
			wantStatus: StatusDegraded,
			wantLLM:    StatusDegraded,
		},
		{
			name: "unhealthy output",
			opts: func(t *testing.T) HealthOptions {
				blocker := filepath.Join(t.TempDir(), "file")
				if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
					t.Fatal(err)
				}
				return HealthOptions{OutputDir: filepath.Join(blocker, "sub"), LLMReady: true}
			},
			wantStatus: StatusUnhealthy,
			wantLLM:    StatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthService(tt.opts(t), nil)
			got := h.Check(context.Background())
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantLLM, got.Services["llm"].Status)
			assert.Contains(t, got.Services, "output")
		})
	}
}

func TestHealthServiceReportsActiveRun(t *testing.T) {
	runner := newBlockingRunner()
	svc := NewAnalysisService(runner, nil, nil)
	snap, err := svc.Start(context.Background(), validRequest())
	assert.NoError(t, err)
	<-runner.started
	defer close(runner.release)

	h := NewHealthService(HealthOptions{OutputDir: t.TempDir(), Hub: fixedCounter(1), Analyses: svc}, nil)
	got := h.Check(context.Background())
	assert.Equal(t, "running "+snap.RunID, got.Services["analysis"].Message)
	assert.Equal(t, "1 clients", got.Services["websocket"].Message)
}
