package domain

import "time"

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"

	// HealthyThreshold is the lowest score still reported as healthy.
	HealthyThreshold = 50
)

// HealthReport is a point-in-time view of the engine.
type HealthReport struct {
	Status          string          `json:"status"`
	Operation       string          `json:"operation"`
	LastRun         *time.Time      `json:"last_run"`
	AccumulatedCost float64         `json:"monthly_cost"`
	TotalProcessed  int             `json:"total_processed"`
	HealthScore     int             `json:"health_score"`
	OperationStatus OperationStatus `json:"operation_status"`
}

// Healthy reports whether the score is at or above the threshold.
func (h HealthReport) Healthy() bool {
	return h.HealthScore >= HealthyThreshold
}

// HealthStatus maps a score to its status label.
func HealthStatus(score int) string {
	if score >= HealthyThreshold {
		return HealthHealthy
	}
	return HealthDegraded
}
