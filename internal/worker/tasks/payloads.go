package tasks

// Task Types
const (
	TypeCleanupRun = "maintenance:cleanup"
)

// CleanupPayload 定期清理任务载荷
// Force 为 true 时跳过节流判断，强制执行一次清理。
type CleanupPayload struct {
	Force bool `json:"force"`
}
