package domain

import "errors"

// 存储层错误，由仓储包装后原样冒泡到边界
var (
	// ErrDuplicateKey 唯一约束冲突（id / email / username）
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrConcurrencyConflict 变更目标在读写之间消失
	ErrConcurrencyConflict = errors.New("concurrency conflict: target row no longer exists")
)
