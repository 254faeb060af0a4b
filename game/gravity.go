package game

import "time"

// dropTable 各等级的重力间隔（毫秒），21 级及以上固定为最快值
var dropTable = [...]int{
	800, 717, 633, 550, 467, 383, 300, 217, 133, 100,
	83, 83, 83, 67, 67, 67, 50, 50, 50, 33,
	33,
}

// MinDropMs 高等级下的最小下落间隔
const MinDropMs = 17

// DropIntervalMs 返回等级对应的下落间隔（毫秒）
func DropIntervalMs(level int) int {
	if level < 0 {
		level = 0
	}
	if level >= len(dropTable) {
		return MinDropMs
	}
	return dropTable[level]
}

// DropInterval 同 DropIntervalMs，返回 time.Duration
func DropInterval(level int) time.Duration {
	return time.Duration(DropIntervalMs(level)) * time.Millisecond
}
