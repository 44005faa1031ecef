package usecase

import (
	"context"
	"time"
)

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

type HealthUsecase interface {
	Check(ctx context.Context) HealthStatus
}

type healthUsecase struct {
	startedAt time.Time
	now       func() time.Time
}

func NewHealthUsecase(startedAt time.Time) HealthUsecase {
	return &healthUsecase{startedAt: startedAt, now: time.Now}
}

func (u *healthUsecase) Check(ctx context.Context) HealthStatus {
	now := u.now()
	return HealthStatus{
		Status:    "OK",
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Uptime:    now.Sub(u.startedAt).Seconds(),
	}
}
