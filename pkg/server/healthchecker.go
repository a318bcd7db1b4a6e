package server

import "context"

type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

type OkHealthChecker struct {
}

func NewOkHealthChecker() *OkHealthChecker {
	return &OkHealthChecker{}
}

func (hc *OkHealthChecker) Healthy(ctx context.Context) bool {
	return true
}

// Pinger matches anything with a Ping method, such as a database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingHealthChecker reports healthy while its target answers pings.
type PingHealthChecker struct {
	target Pinger
}

func NewPingHealthChecker(target Pinger) *PingHealthChecker {
	return &PingHealthChecker{target: target}
}

func (hc *PingHealthChecker) Healthy(ctx context.Context) bool {
	return hc.target.Ping(ctx) == nil
}
