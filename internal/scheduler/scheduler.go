package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

// Scheduler 持有一个排班日的完整内存状态，所有操作都是同步的短计算，
// 持久化由调用方在每次变更后负责（读-改-写）。
type Scheduler struct {
	stations     map[string]*domain.Station
	stationOrder []string // 保留录入顺序，等技能的工位按该顺序填充
	employees    map[string]*domain.Employee
	assignments  map[string]*domain.Assignment
	available    map[string]struct{}
	absent       map[string]struct{} // available 与 absent 永远不相交
	logs         []domain.AssignmentLog
	scenario     ScenarioWeights
	windowDays   int

	now func() time.Time // 便于测试时固定时间
}

func New(stations []*domain.Station, employees []*domain.Employee) *Scheduler {
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

	for _, st := range stations {
		s.stations[st.ID] = st
		s.stationOrder = append(s.stationOrder, st.ID)
	}

	for _, e := range employees {
		if e.StationCompetencies == nil {
			e.StationCompetencies = make(map[string]int)
		}
		s.employees[e.ID] = e
		if e.IsAbsent {
			s.absent[e.ID] = struct{}{}
		} else {
			s.available[e.ID] = struct{}{}
		}
	}

	return s
}

// SetRotationWindow 调整轮换统计的滚动窗口天数
func (s *Scheduler) SetRotationWindow(days int) {
	if days > 0 {
		s.windowDays = days
	}
}

// SetLogs 整体替换历史记录（通常在从数据库加载时调用）
func (s *Scheduler) SetLogs(logs []domain.AssignmentLog) {
	s.logs = logs
}

// GenerateSchedule 重排当日班表：重置全部安排和可用集合，按工位要求的技能等级降序
// 逐个贪心填充。高技能工位的合格人选最少，必须先于通用工位抢占稀缺人手。
// 填不满的工位保留 UnfilledSlots > 0，属于正常结果而不是错误。
func (s *Scheduler) GenerateSchedule(scenario *ScenarioWeights) map[string]*domain.Assignment {
	if scenario != nil {
		s.scenario = *scenario
	}

	s.assignments = make(map[string]*domain.Assignment)
	s.available = make(map[string]struct{})
	for id := range s.employees {
		if _, isAbsent := s.absent[id]; !isAbsent {
			s.available[id] = struct{}{}
		}
	}

	// 只有在有历史记录时才构建轮换统计
	var stats map[StatsKey]*RotationStats
	if len(s.logs) > 0 {
		stats = BuildRotationStats(s.logs, s.windowDays, s.now())
	}

	ordered := make([]string, len(s.stationOrder))
	copy(ordered, s.stationOrder)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.stations[ordered[i]].RequiredSkillLevel > s.stations[ordered[j]].RequiredSkillLevel
	})

	for _, stationID := range ordered {
		station := s.stations[stationID]
		assignment := &domain.Assignment{StationID: stationID, AssignedEmployeeIDs: []string{}}

		qualified := s.qualifiedEmployees(station, stats)

		slotsToFill := station.RequiredHeadcount
		for _, empID := range qualified {
			if slotsToFill <= 0 {
				break
			}
			assignment.AssignedEmployeeIDs = append(assignment.AssignedEmployeeIDs, empID)
			delete(s.available, empID) // 立即移出可用集合，防止同一轮里被重复安排
			slotsToFill--
		}

		assignment.UnfilledSlots = station.RequiredHeadcount - len(assignment.AssignedEmployeeIDs)
		assignment.IsFullyStaffed = assignment.UnfilledSlots == 0

		s.assignments[stationID] = assignment
	}

	return s.assignments
}

// HandleAbsence 把员工标记为缺勤，从所有安排中移除，并逐个重平衡受影响的工位。
// 返回受影响的工位 ID（该员工没有安排时为空）。
func (s *Scheduler) HandleAbsence(employeeID string) ([]string, error) {
	if _, exists := s.employees[employeeID]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEmployee, employeeID)
	}

	s.absent[employeeID] = struct{}{}
	delete(s.available, employeeID)
	s.employees[employeeID].IsAbsent = true

	affected := []string{}
	for _, stationID := range s.stationOrder {
		assignment, exists := s.assignments[stationID]
		if !exists {
			continue
		}
		if removeEmployeeID(assignment, employeeID) {
			affected = append(affected, stationID)
		}
	}

	for _, stationID := range affected {
		if _, err := s.RebalanceSchedule(stationID); err != nil {
			return nil, err
		}
	}

	return affected, nil
}

// MarkPresent 取消缺勤标记，员工没有安排时回到可用集合
func (s *Scheduler) MarkPresent(employeeID string) error {
	if _, exists := s.employees[employeeID]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownEmployee, employeeID)
	}

	delete(s.absent, employeeID)
	s.employees[employeeID].IsAbsent = false
	if !s.isAssigned(employeeID) {
		s.available[employeeID] = struct{}{}
	}
	return nil
}

// RebalanceSchedule 用合格且可用的员工填补某个工位的空缺。
// 每补一个名额都重新计算候选（可用集合可能已经变化），候选耗尽时停止，
// 工位保持欠员状态而不是报错。返回该工位最终是否满员。
func (s *Scheduler) RebalanceSchedule(stationID string) (bool, error) {
	station, exists := s.stations[stationID]
	if !exists {
		return false, fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}

	assignment, exists := s.assignments[stationID]
	if !exists {
		assignment = &domain.Assignment{
			StationID:           stationID,
			AssignedEmployeeIDs: []string{},
			UnfilledSlots:       station.RequiredHeadcount,
		}
		s.assignments[stationID] = assignment
	}

	var stats map[StatsKey]*RotationStats
	if len(s.logs) > 0 {
		stats = BuildRotationStats(s.logs, s.windowDays, s.now())
	}

	for assignment.UnfilledSlots > 0 {
		qualified := s.qualifiedEmployees(station, stats)
		if len(qualified) == 0 {
			break
		}

		empID := qualified[0]
		assignment.AssignedEmployeeIDs = append(assignment.AssignedEmployeeIDs, empID)
		delete(s.available, empID)
		assignment.UnfilledSlots--
	}

	assignment.IsFullyStaffed = assignment.UnfilledSlots == 0
	return assignment.IsFullyStaffed, nil
}

// OverrideAssignment 接受操作员手工指定的人员名单，整体覆盖某个工位的安排，
// 然后重新推导 UnfilledSlots、IsFullyStaffed 和全局可用集合
// （可用 = 全体员工 - 缺勤 - 已在任意工位上的员工）。
func (s *Scheduler) OverrideAssignment(stationID string, employeeIDs []string) (*domain.Assignment, error) {
	station, exists := s.stations[stationID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}

	seen := make(map[string]struct{}, len(employeeIDs))
	for _, empID := range employeeIDs {
		if _, exists := s.employees[empID]; !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownEmployee, empID)
		}
		if _, dup := seen[empID]; dup {
			return nil, fmt.Errorf("员工 %s 在名单中重复出现", empID)
		}
		seen[empID] = struct{}{}
		if _, isAbsent := s.absent[empID]; isAbsent {
			return nil, fmt.Errorf("员工 %s 今日缺勤，不能安排到工位", empID)
		}
		if other := s.assignedStation(empID); other != "" && other != stationID {
			return nil, fmt.Errorf("员工 %s 已被安排在工位 %s", empID, other)
		}
	}

	assignment := &domain.Assignment{
		StationID:           stationID,
		AssignedEmployeeIDs: append([]string{}, employeeIDs...),
	}
	assignment.UnfilledSlots = station.RequiredHeadcount - len(employeeIDs)
	if assignment.UnfilledSlots < 0 {
		assignment.UnfilledSlots = 0
	}
	assignment.IsFullyStaffed = assignment.UnfilledSlots == 0
	s.assignments[stationID] = assignment

	s.recomputeAvailable()
	return assignment, nil
}

// FinalizeDay 把当前安排固化成历史记录，按自然键 (日期, 员工, 工位) 覆盖写入，
// 同一天再次定稿不会产生重复记录。返回本次写入的记录。
func (s *Scheduler) FinalizeDay(logDate string, hoursPerSlot float64) ([]domain.AssignmentLog, error) {
	if _, err := time.Parse("2006-01-02", logDate); err != nil {
		return nil, fmt.Errorf("无效的日期 %q: %w", logDate, err)
	}
	if hoursPerSlot <= 0 {
		hoursPerSlot = 8.0
	}

	entries := []domain.AssignmentLog{}
	for _, stationID := range s.stationOrder {
		assignment, exists := s.assignments[stationID]
		if !exists {
			continue
		}
		for _, empID := range assignment.AssignedEmployeeIDs {
			entries = append(entries, domain.AssignmentLog{
				LogDate:    logDate,
				EmployeeID: empID,
				StationID:  stationID,
				Hours:      hoursPerSlot,
			})
		}
	}

	for _, entry := range entries {
		s.upsertLog(entry)
	}

	return entries, nil
}

// UpsertStation 新增或替换工位。替换时保持原有录入顺序，并根据新的需求人数
// 重新推导该工位安排的空缺状态。
func (s *Scheduler) UpsertStation(st *domain.Station) {
	if _, exists := s.stations[st.ID]; !exists {
		s.stationOrder = append(s.stationOrder, st.ID)
	}
	s.stations[st.ID] = st

	if assignment, exists := s.assignments[st.ID]; exists {
		assignment.UnfilledSlots = st.RequiredHeadcount - len(assignment.AssignedEmployeeIDs)
		if assignment.UnfilledSlots < 0 {
			assignment.UnfilledSlots = 0
		}
		assignment.IsFullyStaffed = assignment.UnfilledSlots == 0
	}
}

// RemoveStation 删除工位并级联清理：从所有员工的熟练度表和当前安排中移除，
// 被释放的员工回到可用集合。
func (s *Scheduler) RemoveStation(stationID string) error {
	if _, exists := s.stations[stationID]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownStation, stationID)
	}

	delete(s.stations, stationID)
	for i, id := range s.stationOrder {
		if id == stationID {
			s.stationOrder = append(s.stationOrder[:i], s.stationOrder[i+1:]...)
			break
		}
	}

	for _, e := range s.employees {
		delete(e.StationCompetencies, stationID)
	}

	if assignment, exists := s.assignments[stationID]; exists {
		for _, empID := range assignment.AssignedEmployeeIDs {
			if _, isAbsent := s.absent[empID]; !isAbsent {
				s.available[empID] = struct{}{}
			}
		}
		delete(s.assignments, stationID)
	}

	return nil
}

// UpsertEmployee 新增或替换员工，新员工按缺勤标记进入对应集合
func (s *Scheduler) UpsertEmployee(e *domain.Employee) {
	if e.StationCompetencies == nil {
		e.StationCompetencies = make(map[string]int)
	}

	_, existed := s.employees[e.ID]
	s.employees[e.ID] = e

	if !existed {
		if e.IsAbsent {
			s.absent[e.ID] = struct{}{}
		} else {
			s.available[e.ID] = struct{}{}
		}
		return
	}

	// 替换已有员工时同步缺勤集合，已在工位上的安排保持不动
	if e.IsAbsent {
		s.absent[e.ID] = struct{}{}
		delete(s.available, e.ID)
	} else {
		delete(s.absent, e.ID)
		if !s.isAssigned(e.ID) {
			s.available[e.ID] = struct{}{}
		}
	}
}

// RemoveEmployee 删除员工并从所有安排和集合中清理
func (s *Scheduler) RemoveEmployee(employeeID string) error {
	if _, exists := s.employees[employeeID]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownEmployee, employeeID)
	}

	delete(s.employees, employeeID)
	delete(s.available, employeeID)
	delete(s.absent, employeeID)

	for _, assignment := range s.assignments {
		removeEmployeeID(assignment, employeeID)
	}

	return nil
}

// UnfilledStations 返回所有未满员工位的 ID，按录入顺序排列
func (s *Scheduler) UnfilledStations() []string {
	unfilled := []string{}
	for _, stationID := range s.stationOrder {
		if assignment, exists := s.assignments[stationID]; exists && !assignment.IsFullyStaffed {
			unfilled = append(unfilled, stationID)
		}
	}
	return unfilled
}

// StationSummary: 报表层使用的工位排班概览
type StationSummary struct {
	StationID             string   `json:"stationID"`
	StationName           string   `json:"stationName"`
	RequiredSkillLevel    int      `json:"requiredSkillLevel"`
	RequiredCertification int      `json:"requiredCertification"`
	AssignedEmployeeIDs   []string `json:"assignedEmployeeIDs"`
	Required              int      `json:"required"`
	Filled                int      `json:"filled"`
	IsFullyStaffed        bool     `json:"isFullyStaffed"`
}

// Summary 返回当前班表的概览，按工位录入顺序排列
func (s *Scheduler) Summary() []StationSummary {
	summaries := []StationSummary{}
	for _, stationID := range s.stationOrder {
		assignment, exists := s.assignments[stationID]
		if !exists {
			continue
		}
		station := s.stations[stationID]
		summaries = append(summaries, StationSummary{
			StationID:             stationID,
			StationName:           station.Name,
			RequiredSkillLevel:    station.RequiredSkillLevel,
			RequiredCertification: station.RequiredCertification,
			AssignedEmployeeIDs:   append([]string{}, assignment.AssignedEmployeeIDs...),
			Required:              station.RequiredHeadcount,
			Filled:                len(assignment.AssignedEmployeeIDs),
			IsFullyStaffed:        assignment.IsFullyStaffed,
		})
	}
	return summaries
}

// RotationStats 基于当前历史记录构建轮换统计（轮换矩阵等报表使用）
func (s *Scheduler) RotationStats() map[StatsKey]*RotationStats {
	return BuildRotationStats(s.logs, s.windowDays, s.now())
}

func (s *Scheduler) Stations() []*domain.Station {
	stations := make([]*domain.Station, 0, len(s.stationOrder))
	for _, id := range s.stationOrder {
		stations = append(stations, s.stations[id])
	}
	return stations
}

func (s *Scheduler) Employees() []*domain.Employee {
	ids := make([]string, 0, len(s.employees))
	for id := range s.employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	employees := make([]*domain.Employee, 0, len(ids))
	for _, id := range ids {
		employees = append(employees, s.employees[id])
	}
	return employees
}

func (s *Scheduler) Assignments() map[string]*domain.Assignment {
	return s.assignments
}

func (s *Scheduler) Logs() []domain.AssignmentLog {
	return s.logs
}

func (s *Scheduler) Scenario() ScenarioWeights {
	return s.scenario
}

func (s *Scheduler) AvailableEmployees() []string {
	return sortedSet(s.available)
}

func (s *Scheduler) AbsentEmployees() []string {
	return sortedSet(s.absent)
}

func (s *Scheduler) isAssigned(employeeID string) bool {
	return s.assignedStation(employeeID) != ""
}

func (s *Scheduler) assignedStation(employeeID string) string {
	for stationID, assignment := range s.assignments {
		for _, id := range assignment.AssignedEmployeeIDs {
			if id == employeeID {
				return stationID
			}
		}
	}
	return ""
}

func (s *Scheduler) recomputeAvailable() {
	s.available = make(map[string]struct{})
	for id := range s.employees {
		if _, isAbsent := s.absent[id]; isAbsent {
			continue
		}
		if s.isAssigned(id) {
			continue
		}
		s.available[id] = struct{}{}
	}
}

func (s *Scheduler) upsertLog(entry domain.AssignmentLog) {
	for i, existing := range s.logs {
		if existing.LogDate == entry.LogDate &&
			existing.EmployeeID == entry.EmployeeID &&
			existing.StationID == entry.StationID {
			s.logs[i] = entry
			return
		}
	}
	s.logs = append(s.logs, entry)
}

func removeEmployeeID(assignment *domain.Assignment, employeeID string) bool {
	for i, id := range assignment.AssignedEmployeeIDs {
		if id == employeeID {
			assignment.AssignedEmployeeIDs = append(assignment.AssignedEmployeeIDs[:i], assignment.AssignedEmployeeIDs[i+1:]...)
			assignment.UnfilledSlots++
			assignment.IsFullyStaffed = false
			return true
		}
	}
	return false
}

func sortedSet(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
