package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classhub_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "classhub_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// 回收站与撤销指标
var (
	// ActionsRecordedTotal 记录的可撤销操作总数
	ActionsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classhub_undo_actions_recorded_total",
			Help: "记录的可撤销操作总数",
		},
		[]string{"action_type", "entity"},
	)

	// ActionsUndoneTotal 成功撤销的操作总数
	ActionsUndoneTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classhub_undo_actions_undone_total",
			Help: "成功撤销的操作总数",
		},
		[]string{"action_type", "entity"},
	)

	// TrashPurgedTotal 回收站过期清除的记录总数
	TrashPurgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classhub_trash_purged_total",
			Help: "回收站过期清除的记录总数",
		},
		[]string{"entity"},
	)

	// LedgerPurgedTotal 撤销日志过期清除的行数
	LedgerPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classhub_ledger_purged_total",
			Help: "撤销日志过期清除的行数",
		},
	)

	// CleanupRunsTotal 清理任务执行次数
	CleanupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classhub_cleanup_runs_total",
			Help: "清理任务执行次数",
		},
		[]string{"status"}, // ok / partial
	)
)
