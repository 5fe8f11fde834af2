package database

import (
	"sync"
)

// statusManager 线程安全地保存Redis的健康状态
type statusManager struct {
	mu             sync.RWMutex
	isRedisHealthy bool
	lastKnownRunID string
}

var globalStatus = &statusManager{}

// IsRedisHealthy 返回当前Redis是否可用
func IsRedisHealthy() bool {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.isRedisHealthy
}

// SetRedisHealthy 设置Redis健康状态，返回状态是否发生了变化
func SetRedisHealthy(healthy bool) (changed bool) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	changed = globalStatus.isRedisHealthy != healthy
	globalStatus.isRedisHealthy = healthy
	return changed
}

// SwapRunID 记录最新的run_id并返回之前的值
func SwapRunID(runID string) (previous string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	previous = globalStatus.lastKnownRunID
	globalStatus.lastKnownRunID = runID
	return previous
}
