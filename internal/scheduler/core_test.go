package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

func TestIsQualified(t *testing.T) {
	station := &domain.Station{
		ID:                    "stn_weld",
		Name:                  "焊接",
		RequiredSkillLevel:    2,
		RequiredHeadcount:     1,
		RequiredCertification: 1,
	}

	t.Run("certification and competency both satisfied", func(t *testing.T) {
		e := &domain.Employee{
			ID:                  "emp_1",
			CertificationLevel:  1,
			StationCompetencies: map[string]int{"stn_weld": 2},
		}
		require.True(t, IsQualified(e, station))
	})

	t.Run("certification below requirement", func(t *testing.T) {
		e := &domain.Employee{
			ID:                  "emp_2",
			CertificationLevel:  0,
			StationCompetencies: map[string]int{"stn_weld": 4},
		}
		require.False(t, IsQualified(e, station))
	})

	t.Run("competency below requirement", func(t *testing.T) {
		e := &domain.Employee{
			ID:                  "emp_3",
			CertificationLevel:  2,
			StationCompetencies: map[string]int{"stn_weld": 1},
		}
		require.False(t, IsQualified(e, station))
	})

	t.Run("missing competency entry counts as zero", func(t *testing.T) {
		e := &domain.Employee{
			ID:                  "emp_4",
			CertificationLevel:  2,
			StationCompetencies: map[string]int{},
		}
		require.False(t, IsQualified(e, station))

		zeroStation := &domain.Station{ID: "stn_pack", RequiredSkillLevel: 0, RequiredHeadcount: 1}
		require.True(t, IsQualified(e, zeroStation))
	})
}

func TestBuildRotationStats(t *testing.T) {
	asOf := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	t.Run("window lower bound is inclusive", func(t *testing.T) {
		logs := []domain.AssignmentLog{
			{LogDate: "2026-08-01", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
			{LogDate: "2026-07-31", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
		}
		stats := BuildRotationStats(logs, 30, asOf)

		rs, exists := stats[StatsKey{EmployeeID: "emp_1", StationID: "stn_1"}]
		require.True(t, exists)
		// 只有恰好落在 cutoff 当天的记录被保留
		require.Equal(t, 1, rs.AssignmentCount)
		require.Equal(t, 8.0, rs.TotalHours)
		require.Equal(t, 30, rs.DaysSinceLast)
	})

	t.Run("accumulates hours and count per pair", func(t *testing.T) {
		logs := []domain.AssignmentLog{
			{LogDate: "2026-08-10", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
			{LogDate: "2026-08-20", EmployeeID: "emp_1", StationID: "stn_1", Hours: 6.5},
			{LogDate: "2026-08-20", EmployeeID: "emp_1", StationID: "stn_2", Hours: 2},
		}
		stats := BuildRotationStats(logs, 30, asOf)

		rs := stats[StatsKey{EmployeeID: "emp_1", StationID: "stn_1"}]
		require.NotNil(t, rs)
		require.Equal(t, 2, rs.AssignmentCount)
		require.Equal(t, 14.5, rs.TotalHours)

		other := stats[StatsKey{EmployeeID: "emp_1", StationID: "stn_2"}]
		require.NotNil(t, other)
		require.Equal(t, 1, other.AssignmentCount)
	})

	t.Run("days since last takes the smallest gap regardless of order", func(t *testing.T) {
		logs := []domain.AssignmentLog{
			{LogDate: "2026-08-29", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
			{LogDate: "2026-08-05", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
			{LogDate: "2026-08-15", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
		}
		stats := BuildRotationStats(logs, 30, asOf)

		rs := stats[StatsKey{EmployeeID: "emp_1", StationID: "stn_1"}]
		require.Equal(t, 2, rs.DaysSinceLast)
	})

	t.Run("unparseable dates are skipped not fatal", func(t *testing.T) {
		logs := []domain.AssignmentLog{
			{LogDate: "昨天", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
			{LogDate: "2026/08/20", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
			{LogDate: "2026-08-20", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
		}
		stats := BuildRotationStats(logs, 30, asOf)

		rs := stats[StatsKey{EmployeeID: "emp_1", StationID: "stn_1"}]
		require.Equal(t, 1, rs.AssignmentCount)
	})

	t.Run("pair without in-window entries is absent from the result", func(t *testing.T) {
		logs := []domain.AssignmentLog{
			{LogDate: "2026-06-01", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
		}
		stats := BuildRotationStats(logs, 30, asOf)
		require.Empty(t, stats)
	})

	t.Run("rebuilding from the same log is idempotent", func(t *testing.T) {
		logs := []domain.AssignmentLog{
			{LogDate: "2026-08-10", EmployeeID: "emp_1", StationID: "stn_1", Hours: 8},
			{LogDate: "2026-08-29", EmployeeID: "emp_2", StationID: "stn_1", Hours: 4},
		}
		first := BuildRotationStats(logs, 30, asOf)
		second := BuildRotationStats(logs, 30, asOf)
		require.Equal(t, first, second)
	})
}

func TestPriorityScore(t *testing.T) {
	station := &domain.Station{ID: "stn_1", RequiredSkillLevel: 1, RequiredHeadcount: 1}
	employee := &domain.Employee{
		ID:                  "emp_1",
		CertificationLevel:  2,
		StationCompetencies: map[string]int{"stn_1": 4},
	}

	s := New([]*domain.Station{station}, []*domain.Employee{employee})

	t.Run("no stats means max recency and zero fatigue", func(t *testing.T) {
		s.scenario = scenarios["Balanced"]
		score := s.priorityScore(employee, station, map[StatsKey]*RotationStats{})
		// skill = (4+2)/6 = 1.0, recency = 1.0, fatigue = 0
		require.InDelta(t, 0.40*1.0+0.35*1.0, score, 1e-9)
	})

	t.Run("recency and fatigue are capped", func(t *testing.T) {
		s.scenario = scenarios["Balanced"]
		stats := map[StatsKey]*RotationStats{
			{EmployeeID: "emp_1", StationID: "stn_1"}: {DaysSinceLast: 999, TotalHours: 500},
		}
		score := s.priorityScore(employee, station, stats)
		// 闲置 45 天和闲置 30 天得分一致，疲劳同理封顶
		require.InDelta(t, 0.40*1.0+0.35*1.0-0.25*1.0, score, 1e-9)
	})

	t.Run("invert skill prefers less experienced", func(t *testing.T) {
		s.scenario = scenarios["Cross-Training"]
		novice := &domain.Employee{
			ID:                  "emp_2",
			CertificationLevel:  0,
			StationCompetencies: map[string]int{"stn_1": 1},
		}
		expertScore := s.priorityScore(employee, station, map[StatsKey]*RotationStats{})
		noviceScore := s.priorityScore(novice, station, map[StatsKey]*RotationStats{})
		require.Greater(t, noviceScore, expertScore)
	})
}

func TestLookupScenario(t *testing.T) {
	t.Run("known scenarios", func(t *testing.T) {
		for _, name := range scenarioOrder {
			w, err := LookupScenario(name)
			require.NoError(t, err)
			require.Equal(t, name, w.Name)
		}
	})

	t.Run("unknown scenario fails fast", func(t *testing.T) {
		_, err := LookupScenario("Overtime Madness")
		require.ErrorIs(t, err, ErrUnknownScenario)
	})

	t.Run("list preserves display order", func(t *testing.T) {
		infos := ListScenarios()
		require.Len(t, infos, 5)
		require.Equal(t, "Balanced", infos[0].Name)
		require.Equal(t, "Fresh Rotation", infos[4].Name)
		for _, info := range infos {
			require.NotEmpty(t, info.Description)
		}
	})
}
