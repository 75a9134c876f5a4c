package service

import "github.com/prometheus/client_golang/prometheus"

// 批量操作逐项结果
var bulkItems = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "user_bulk_items_total", Help: "Items processed by bulk user operations"},
	[]string{"op", "result"},
)

func init() { prometheus.MustRegister(bulkItems) }
