package scheduler

import (
	"math"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

// StatsKey: 轮换统计的键
type StatsKey struct {
	EmployeeID string
	StationID  string
}

// IsQualified 判断员工是否同时满足工位的认证门槛和熟练度门槛。
// 没有评级的工位视为熟练度 0，因此任何要求熟练度 >= 1 的工位都不合格。
func IsQualified(e *domain.Employee, st *domain.Station) bool {
	return e.CertificationLevel >= st.RequiredCertification &&
		e.GetCompetency(st.ID) >= st.RequiredSkillLevel
}

// BuildRotationStats 把滚动窗口内的历史记录折叠成 (员工, 工位) 聚合值。
// 窗口下界为闭区间，恰好落在 cutoff 当天的记录会被保留。
// 历史记录不保证按日期有序，所以 DaysSinceLast 取遍历过程中遇到的最小间隔。
// 日期无法解析的记录直接跳过，不影响整体计算。
func BuildRotationStats(logs []domain.AssignmentLog, windowDays int, asOf time.Time) map[StatsKey]*RotationStats {
	asOf = time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := asOf.AddDate(0, 0, -windowDays)

	stats := make(map[StatsKey]*RotationStats)

	for _, entry := range logs {
		d, err := time.Parse("2006-01-02", entry.LogDate)
		if err != nil {
			continue
		}
		if d.Before(cutoff) {
			continue
		}

		key := StatsKey{EmployeeID: entry.EmployeeID, StationID: entry.StationID}
		rs, exists := stats[key]
		if !exists {
			rs = &RotationStats{
				EmployeeID:    entry.EmployeeID,
				StationID:     entry.StationID,
				DaysSinceLast: neverAssigned,
			}
			stats[key] = rs
		}

		rs.TotalHours += entry.Hours
		rs.AssignmentCount++

		daysAgo := int(asOf.Sub(d).Hours() / 24)
		if daysAgo < rs.DaysSinceLast {
			rs.DaysSinceLast = daysAgo
		}
	}

	return stats
}

// priorityScore 把熟练度、认证、轮换间隔和疲劳折算成一个标量，越大越优先。
// 窗口内没有统计值的 (员工, 工位) 视为从未安排过：轮换得分拉满，疲劳为零。
func (s *Scheduler) priorityScore(e *domain.Employee, st *domain.Station, stats map[StatsKey]*RotationStats) float64 {
	w := s.scenario

	skillScore := float64(e.GetCompetency(st.ID)+e.CertificationLevel) / skillCeiling
	if w.InvertSkill {
		skillScore = 1.0 - skillScore
	}

	recencyScore := 1.0
	fatigueScore := 0.0
	if rs, exists := stats[StatsKey{EmployeeID: e.ID, StationID: st.ID}]; exists {
		recencyScore = float64(min(rs.DaysSinceLast, recencyCapDays)) / float64(recencyCapDays)
		fatigueScore = math.Min(rs.TotalHours, fatigueCapHours) / fatigueCapHours
	}

	return w.SkillWeight*skillScore + w.RecencyWeight*recencyScore - w.FatigueWeight*fatigueScore
}

// qualifiedEmployees 返回当前可用且合格的员工，已按优先级降序排列。
// 候选先按员工 ID 升序生成，再做稳定排序，因此同分时固定按 ID 升序，结果可复现。
// stats 为 nil（完全没有历史记录）时不经过打分器，退回 (认证, 熟练度) 降序。
func (s *Scheduler) qualifiedEmployees(st *domain.Station, stats map[StatsKey]*RotationStats) []string {
	ids := make([]string, 0, len(s.available))
	for id := range s.available {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	qualified := make([]string, 0, len(ids))
	for _, id := range ids {
		if IsQualified(s.employees[id], st) {
			qualified = append(qualified, id)
		}
	}

	if stats == nil {
		sort.SliceStable(qualified, func(i, j int) bool {
			ei, ej := s.employees[qualified[i]], s.employees[qualified[j]]
			if ei.CertificationLevel != ej.CertificationLevel {
				return ei.CertificationLevel > ej.CertificationLevel
			}
			return ei.GetCompetency(st.ID) > ej.GetCompetency(st.ID)
		})
		return qualified
	}

	scores := make(map[string]float64, len(qualified))
	for _, id := range qualified {
		scores[id] = s.priorityScore(s.employees[id], st, stats)
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return scores[qualified[i]] > scores[qualified[j]]
	})
	return qualified
}
