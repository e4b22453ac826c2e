package model

// Summary holds the scalar counters of a Snapshot.
type Summary struct {
	TotalRequests    int     `json:"total_requests"`
	TotalSanitized   int     `json:"total_sanitized"`
	TotalRestored    int     `json:"total_restored"`
	RiskTotal        int     `json:"risk_total"`
	ProtectionRate   float64 `json:"protection_rate"`
	AverageRiskScore float64 `json:"average_risk_score"`
}

// Snapshot is the cumulative analytics view pushed to dashboard subscribers.
type Snapshot struct {
	Summary              Summary        `json:"summary"`
	DailyCounts          map[string]int `json:"daily_counts"`
	TypeDistribution     map[string]int `json:"type_distribution"`
	ProviderDistribution map[string]int `json:"provider_distribution"`
}
