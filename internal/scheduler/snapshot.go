package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

// snapshotEmployee 兼容旧版员工数据：早期格式只有一个整体技能等级
// （current_skill_level），没有分工位的熟练度表。
type snapshotEmployee struct {
	domain.Employee
	LegacySkillLevel *int `json:"current_skill_level,omitempty"`
}

// Snapshot 是引擎状态的扁平序列化形式，用于持久化往返。
// 工位按录入顺序存储，缺勤集合是权威数据，恢复时原样重建而不是从安排反推。
type Snapshot struct {
	Stations           []*domain.Station      `json:"stations"`
	Employees          []snapshotEmployee     `json:"employees"`
	Assignments        []*domain.Assignment   `json:"assignments"`
	AvailableEmployees []string               `json:"availableEmployees"`
	AbsentEmployees    []string               `json:"absentEmployees"`
	AssignmentLogs     []domain.AssignmentLog `json:"assignmentLogs"`
	Scenario           string                 `json:"scenario"`
}

func (s *Scheduler) Snapshot() *Snapshot {
	snapshot := &Snapshot{
		Stations:           s.Stations(),
		Assignments:        []*domain.Assignment{},
		AvailableEmployees: s.AvailableEmployees(),
		AbsentEmployees:    s.AbsentEmployees(),
		AssignmentLogs:     append([]domain.AssignmentLog{}, s.logs...),
		Scenario:           s.scenario.Name,
	}

	for _, e := range s.Employees() {
		snapshot.Employees = append(snapshot.Employees, snapshotEmployee{Employee: *e})
	}

	for _, stationID := range s.stationOrder {
		if assignment, exists := s.assignments[stationID]; exists {
			snapshot.Assignments = append(snapshot.Assignments, assignment)
		}
	}

	return snapshot
}

// MarshalState 把引擎状态编码成 JSON（写入 schedule_states 表的内容）
func (s *Scheduler) MarshalState() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// FromSnapshot 从快照原样重建引擎。工位和员工的身份字段缺失、安排引用了
// 不存在的实体、同一员工出现在多个工位等问题都会返回 ErrBadSnapshot 而不是
// 悄悄用默认值掩盖；纯展示字段（如名称）允许为空。
func FromSnapshot(snapshot *Snapshot) (*Scheduler, error) {
	s := &Scheduler{
		stations:    make(map[string]*domain.Station),
		employees:   make(map[string]*domain.Employee),
		assignments: make(map[string]*domain.Assignment),
		available:   make(map[string]struct{}),
		absent:      make(map[string]struct{}),
		scenario:    DefaultScenario(),
		windowDays:  DefaultRotationWindowDays,
		now:         time.Now,
	}

	for i, st := range snapshot.Stations {
		if st == nil || st.ID == "" {
			return nil, fmt.Errorf("%w: 第 %d 个工位缺少 ID", ErrBadSnapshot, i+1)
		}
		if _, dup := s.stations[st.ID]; dup {
			return nil, fmt.Errorf("%w: 工位 %s 重复出现", ErrBadSnapshot, st.ID)
		}
		if st.RequiredHeadcount < 1 {
			st.RequiredHeadcount = 1
		}
		s.stations[st.ID] = st
		s.stationOrder = append(s.stationOrder, st.ID)
	}

	for i, se := range snapshot.Employees {
		if se.ID == "" {
			return nil, fmt.Errorf("%w: 第 %d 个员工缺少 ID", ErrBadSnapshot, i+1)
		}
		if _, dup := s.employees[se.ID]; dup {
			return nil, fmt.Errorf("%w: 员工 %s 重复出现", ErrBadSnapshot, se.ID)
		}
		e := se.Employee
		// 旧版数据的整体技能等级不能映射到任何具体工位，
		// 迁移为一张空的熟练度表（即所有工位都未评级）
		if e.StationCompetencies == nil {
			e.StationCompetencies = make(map[string]int)
		}
		s.employees[se.ID] = &e
	}

	assignedAt := make(map[string]string)
	for _, assignment := range snapshot.Assignments {
		if assignment == nil || assignment.StationID == "" {
			return nil, fmt.Errorf("%w: 安排缺少工位 ID", ErrBadSnapshot)
		}
		if _, exists := s.stations[assignment.StationID]; !exists {
			return nil, fmt.Errorf("%w: 安排引用了不存在的工位 %s", ErrBadSnapshot, assignment.StationID)
		}
		if _, dup := s.assignments[assignment.StationID]; dup {
			return nil, fmt.Errorf("%w: 工位 %s 存在多条安排", ErrBadSnapshot, assignment.StationID)
		}
		for _, empID := range assignment.AssignedEmployeeIDs {
			if _, exists := s.employees[empID]; !exists {
				return nil, fmt.Errorf("%w: 安排引用了不存在的员工 %s", ErrBadSnapshot, empID)
			}
			if other, dup := assignedAt[empID]; dup {
				return nil, fmt.Errorf("%w: 员工 %s 同时出现在工位 %s 和 %s", ErrBadSnapshot, empID, other, assignment.StationID)
			}
			assignedAt[empID] = assignment.StationID
		}
		if assignment.AssignedEmployeeIDs == nil {
			assignment.AssignedEmployeeIDs = []string{}
		}
		s.assignments[assignment.StationID] = assignment
	}

	// 缺勤状态是权威数据，按快照原样恢复，不从安排反推
	for _, empID := range snapshot.AbsentEmployees {
		if _, exists := s.employees[empID]; !exists {
			return nil, fmt.Errorf("%w: 缺勤集合引用了不存在的员工 %s", ErrBadSnapshot, empID)
		}
		s.absent[empID] = struct{}{}
		s.employees[empID].IsAbsent = true
	}
	for _, empID := range snapshot.AvailableEmployees {
		if _, exists := s.employees[empID]; !exists {
			return nil, fmt.Errorf("%w: 可用集合引用了不存在的员工 %s", ErrBadSnapshot, empID)
		}
		if _, isAbsent := s.absent[empID]; isAbsent {
			return nil, fmt.Errorf("%w: 员工 %s 同时出现在可用和缺勤集合中", ErrBadSnapshot, empID)
		}
		s.available[empID] = struct{}{}
	}

	s.logs = append([]domain.AssignmentLog{}, snapshot.AssignmentLogs...)

	if snapshot.Scenario != "" {
		w, err := LookupScenario(snapshot.Scenario)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, snapshot.Scenario)
		}
		s.scenario = w
	}

	return s, nil
}

// UnmarshalState 从 JSON 重建引擎（读取 schedule_states 表的内容）
func UnmarshalState(data []byte) (*Scheduler, error) {
	snapshot := &Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return FromSnapshot(snapshot)
}
