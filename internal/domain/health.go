package domain

// ============================================================
// Health & build metadata API responses
// ============================================================

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Env     string `json:"env"`
	LogMode string `json:"log_mode"`
}

// VersionInfo is returned by GET /version.
type VersionInfo struct {
	Service string `json:"service"`
	Env     string `json:"env"`
	Version string `json:"version"`
	GitSHA  string `json:"git_sha"`
}

// ReadinessStatus is returned by GET /readyz.
type ReadinessStatus struct {
	Status string            `json:"status"` // ready, unavailable
	Checks map[string]string `json:"checks"`
}

// BuildInfo describes the running process.
type BuildInfo struct {
	Service string
	Env     string
	LogMode string
	Version string
	GitSHA  string
}
