package domain

import (
	"encoding/json"
	"time"
)

// ScheduleState 是某个排班日的完整引擎状态快照，每次变更后整体写回
type ScheduleState struct {
	ScheduleDate string          `json:"scheduleDate"` // 格式为 2006-01-02
	State        json.RawMessage `json:"state"`
	CreatedAt    time.Time       `json:"createdAt"`
	Version      int32           `json:"-"`
}
