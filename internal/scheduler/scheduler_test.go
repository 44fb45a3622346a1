package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

func fixedClock(s *Scheduler) {
	s.now = func() time.Time {
		return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	}
}

func newTestScheduler(stations []*domain.Station, employees []*domain.Employee) *Scheduler {
	s := New(stations, employees)
	fixedClock(s)
	return s
}

func station(id, name string, skill, headcount, certification int) *domain.Station {
	return &domain.Station{
		ID:                    id,
		Name:                  name,
		RequiredSkillLevel:    skill,
		RequiredHeadcount:     headcount,
		RequiredCertification: certification,
	}
}

func employee(id, name string, certification int, competencies map[string]int) *domain.Employee {
	return &domain.Employee{
		ID:                  id,
		Name:                name,
		CertificationLevel:  certification,
		StationCompetencies: competencies,
	}
}

func TestGenerateSchedule(t *testing.T) {
	t.Run("spec scenario: critical station claims scarce talent first", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{
				station("stn_critical", "Critical", 3, 2, 0),
				station("stn_general", "General", 1, 1, 0),
			},
			[]*domain.Employee{
				employee("emp_alice", "Alice", 0, map[string]int{"stn_critical": 3, "stn_general": 3}),
				employee("emp_bob", "Bob", 0, map[string]int{"stn_critical": 1, "stn_general": 2}),
			},
		)

		assignments := s.GenerateSchedule(nil)

		critical := assignments["stn_critical"]
		require.Equal(t, []string{"emp_alice"}, critical.AssignedEmployeeIDs)
		require.Equal(t, 1, critical.UnfilledSlots)
		require.False(t, critical.IsFullyStaffed)

		general := assignments["stn_general"]
		require.Equal(t, []string{"emp_bob"}, general.AssignedEmployeeIDs)
		require.Equal(t, 0, general.UnfilledSlots)
		require.True(t, general.IsFullyStaffed)
	})

	t.Run("slot bookkeeping invariants", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{
				station("stn_a", "装配", 2, 3, 0),
				station("stn_b", "包装", 0, 2, 0),
			},
			[]*domain.Employee{
				employee("emp_1", "张伟", 1, map[string]int{"stn_a": 2}),
				employee("emp_2", "李静", 0, map[string]int{"stn_a": 3}),
				employee("emp_3", "王磊", 0, nil),
			},
		)

		assignments := s.GenerateSchedule(nil)

		seen := make(map[string]string)
		for stationID, assignment := range assignments {
			st := s.stations[stationID]
			require.LessOrEqual(t, len(assignment.AssignedEmployeeIDs), st.RequiredHeadcount)
			require.Equal(t, st.RequiredHeadcount-len(assignment.AssignedEmployeeIDs), assignment.UnfilledSlots)
			require.Equal(t, assignment.UnfilledSlots == 0, assignment.IsFullyStaffed)

			for _, empID := range assignment.AssignedEmployeeIDs {
				// 每个被安排的员工都必须合格，且不能同时出现在两个工位
				require.True(t, IsQualified(s.employees[empID], st))
				other, dup := seen[empID]
				require.Falsef(t, dup, "员工 %s 同时出现在 %s 和 %s", empID, other, stationID)
				seen[empID] = stationID
			}
		}
	})

	t.Run("single qualified worker goes to the higher skill station", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{
				station("stn_low", "通用", 1, 1, 0),
				station("stn_high", "精密加工", 3, 1, 0),
			},
			[]*domain.Employee{
				employee("emp_only", "唯一人选", 2, map[string]int{"stn_low": 4, "stn_high": 3}),
			},
		)

		assignments := s.GenerateSchedule(nil)

		require.Equal(t, []string{"emp_only"}, assignments["stn_high"].AssignedEmployeeIDs)
		require.Empty(t, assignments["stn_low"].AssignedEmployeeIDs)
		require.Equal(t, 1, assignments["stn_low"].UnfilledSlots)
	})

	t.Run("empty log falls back to certification then competency descending", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "装配", 1, 2, 0)},
			[]*domain.Employee{
				employee("emp_x", "学徒", 0, map[string]int{"stn_1": 4}),
				employee("emp_y", "老师傅", 2, map[string]int{"stn_1": 1}),
				employee("emp_z", "组长", 2, map[string]int{"stn_1": 3}),
			},
		)

		assignments := s.GenerateSchedule(nil)
		require.Equal(t, []string{"emp_z", "emp_y"}, assignments["stn_1"].AssignedEmployeeIDs)
	})

	t.Run("equal priority breaks ties by employee id ascending", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "装配", 1, 1, 0)},
			[]*domain.Employee{
				employee("emp_b", "乙", 1, map[string]int{"stn_1": 2}),
				employee("emp_a", "甲", 1, map[string]int{"stn_1": 2}),
			},
		)

		assignments := s.GenerateSchedule(nil)
		require.Equal(t, []string{"emp_a"}, assignments["stn_1"].AssignedEmployeeIDs)
	})

	t.Run("scenario weights steer the pick", func(t *testing.T) {
		stations := []*domain.Station{station("stn_1", "装配", 1, 1, 0)}
		employees := []*domain.Employee{
			employee("emp_expert", "专家", 2, map[string]int{"stn_1": 4}),
			employee("emp_fresh", "新手", 0, map[string]int{"stn_1": 1}),
		}
		logs := []domain.AssignmentLog{
			// 专家昨天刚在这个工位干了一整天
			{LogDate: "2026-08-30", EmployeeID: "emp_expert", StationID: "stn_1", Hours: 8},
		}

		generate := func(scenarioName string) []string {
			s := newTestScheduler(stations, employees)
			s.SetLogs(logs)
			w, err := LookupScenario(scenarioName)
			require.NoError(t, err)
			return s.GenerateSchedule(&w)["stn_1"].AssignedEmployeeIDs
		}

		require.Equal(t, []string{"emp_expert"}, generate("Max Competency"))
		require.Equal(t, []string{"emp_fresh"}, generate("Fresh Rotation"))
		require.Equal(t, []string{"emp_fresh"}, generate("Cross-Training"))
	})

	t.Run("absent employees never enter the pool", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "装配", 1, 1, 0)},
			[]*domain.Employee{
				employee("emp_1", "张伟", 2, map[string]int{"stn_1": 4}),
				employee("emp_2", "李静", 0, map[string]int{"stn_1": 1}),
			},
		)
		_, err := s.HandleAbsence("emp_1")
		require.NoError(t, err)

		assignments := s.GenerateSchedule(nil)
		require.Equal(t, []string{"emp_2"}, assignments["stn_1"].AssignedEmployeeIDs)
	})
}

func TestHandleAbsence(t *testing.T) {
	t.Run("unknown employee", func(t *testing.T) {
		s := newTestScheduler(nil, nil)
		_, err := s.HandleAbsence("emp_ghost")
		require.ErrorIs(t, err, ErrUnknownEmployee)
	})

	t.Run("absence without assignment affects nothing", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "装配", 1, 1, 0)},
			[]*domain.Employee{
				employee("emp_1", "张伟", 0, map[string]int{"stn_1": 2}),
				employee("emp_2", "李静", 0, map[string]int{"stn_1": 1}),
			},
		)
		s.GenerateSchedule(nil)

		affected, err := s.HandleAbsence("emp_2")
		require.NoError(t, err)
		require.Empty(t, affected)
		require.NotContains(t, s.AvailableEmployees(), "emp_2")
		require.Contains(t, s.AbsentEmployees(), "emp_2")
	})

	t.Run("qualified substitute restaffs the station", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "装配", 1, 1, 0)},
			[]*domain.Employee{
				employee("emp_1", "张伟", 2, map[string]int{"stn_1": 3}),
				employee("emp_2", "李静", 1, map[string]int{"stn_1": 2}),
			},
		)
		assignments := s.GenerateSchedule(nil)
		require.Equal(t, []string{"emp_1"}, assignments["stn_1"].AssignedEmployeeIDs)

		affected, err := s.HandleAbsence("emp_1")
		require.NoError(t, err)
		require.Equal(t, []string{"stn_1"}, affected)

		assignment := s.assignments["stn_1"]
		require.Equal(t, []string{"emp_2"}, assignment.AssignedEmployeeIDs)
		require.True(t, assignment.IsFullyStaffed)
	})

	t.Run("no substitute leaves exactly one slot open per removal", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "精密加工", 3, 2, 0)},
			[]*domain.Employee{
				employee("emp_1", "张伟", 2, map[string]int{"stn_1": 3}),
				employee("emp_2", "李静", 2, map[string]int{"stn_1": 4}),
			},
		)
		s.GenerateSchedule(nil)
		require.True(t, s.assignments["stn_1"].IsFullyStaffed)

		affected, err := s.HandleAbsence("emp_1")
		require.NoError(t, err)
		require.Equal(t, []string{"stn_1"}, affected)

		assignment := s.assignments["stn_1"]
		require.Equal(t, 1, assignment.UnfilledSlots)
		require.False(t, assignment.IsFullyStaffed)
		require.Equal(t, []string{"stn_1"}, s.UnfilledStations())
	})
}

func TestMarkPresent(t *testing.T) {
	s := newTestScheduler(
		[]*domain.Station{station("stn_1", "装配", 1, 1, 0)},
		[]*domain.Employee{employee("emp_1", "张伟", 0, map[string]int{"stn_1": 2})},
	)

	_, err := s.HandleAbsence("emp_1")
	require.NoError(t, err)
	require.Empty(t, s.AvailableEmployees())

	require.NoError(t, s.MarkPresent("emp_1"))
	require.Equal(t, []string{"emp_1"}, s.AvailableEmployees())
	require.Empty(t, s.AbsentEmployees())

	require.ErrorIs(t, s.MarkPresent("emp_ghost"), ErrUnknownEmployee)
}

func TestRebalanceSchedule(t *testing.T) {
	t.Run("unknown station", func(t *testing.T) {
		s := newTestScheduler(nil, nil)
		_, err := s.RebalanceSchedule("stn_ghost")
		require.ErrorIs(t, err, ErrUnknownStation)
	})

	t.Run("creates an assignment when none exists", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "装配", 1, 2, 0)},
			[]*domain.Employee{
				employee("emp_1", "张伟", 0, map[string]int{"stn_1": 2}),
			},
		)

		full, err := s.RebalanceSchedule("stn_1")
		require.NoError(t, err)
		require.False(t, full)

		assignment := s.assignments["stn_1"]
		require.Equal(t, []string{"emp_1"}, assignment.AssignedEmployeeIDs)
		require.Equal(t, 1, assignment.UnfilledSlots)
	})

	t.Run("exhausted pool stops without error", func(t *testing.T) {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "精密加工", 4, 3, 2)},
			[]*domain.Employee{
				employee("emp_1", "张伟", 0, map[string]int{"stn_1": 4}),
			},
		)

		full, err := s.RebalanceSchedule("stn_1")
		require.NoError(t, err)
		require.False(t, full)
		require.Equal(t, 3, s.assignments["stn_1"].UnfilledSlots)
	})
}

func TestOverrideAssignment(t *testing.T) {
	setup := func() *Scheduler {
		s := newTestScheduler(
			[]*domain.Station{
				station("stn_1", "装配", 1, 2, 0),
				station("stn_2", "包装", 0, 1, 0),
			},
			[]*domain.Employee{
				employee("emp_1", "张伟", 1, map[string]int{"stn_1": 2}),
				employee("emp_2", "李静", 0, map[string]int{"stn_1": 1, "stn_2": 1}),
				employee("emp_3", "王磊", 0, map[string]int{"stn_2": 2}),
			},
		)
		s.GenerateSchedule(nil)
		return s
	}

	t.Run("override recomputes slots and global availability", func(t *testing.T) {
		s := setup()

		assignment, err := s.OverrideAssignment("stn_1", []string{"emp_1"})
		require.NoError(t, err)
		require.Equal(t, 1, assignment.UnfilledSlots)
		require.False(t, assignment.IsFullyStaffed)

		// emp_2 被挤出 stn_1 后必须重新回到可用集合
		available := s.AvailableEmployees()
		require.Contains(t, available, "emp_2")
		require.NotContains(t, available, "emp_1")
	})

	t.Run("unknown station and employee", func(t *testing.T) {
		s := setup()

		_, err := s.OverrideAssignment("stn_ghost", nil)
		require.ErrorIs(t, err, ErrUnknownStation)

		_, err = s.OverrideAssignment("stn_1", []string{"emp_ghost"})
		require.ErrorIs(t, err, ErrUnknownEmployee)
	})

	t.Run("duplicates in the list are rejected", func(t *testing.T) {
		s := setup()
		_, err := s.OverrideAssignment("stn_1", []string{"emp_1", "emp_1"})
		require.Error(t, err)
	})

	t.Run("absent employees are rejected", func(t *testing.T) {
		s := setup()
		_, err := s.HandleAbsence("emp_1")
		require.NoError(t, err)

		_, err = s.OverrideAssignment("stn_1", []string{"emp_1"})
		require.Error(t, err)
	})

	t.Run("employee assigned elsewhere is rejected", func(t *testing.T) {
		s := setup()
		require.Equal(t, []string{"emp_3"}, s.assignments["stn_2"].AssignedEmployeeIDs)

		_, err := s.OverrideAssignment("stn_1", []string{"emp_3"})
		require.Error(t, err)
	})

	t.Run("overstaffed override clamps unfilled to zero", func(t *testing.T) {
		s := setup()
		assignment, err := s.OverrideAssignment("stn_2", []string{"emp_3"})
		require.NoError(t, err)
		require.Equal(t, 0, assignment.UnfilledSlots)
		require.True(t, assignment.IsFullyStaffed)
	})
}

func TestFinalizeDay(t *testing.T) {
	setup := func() *Scheduler {
		s := newTestScheduler(
			[]*domain.Station{station("stn_1", "装配", 1, 2, 0)},
			[]*domain.Employee{
				employee("emp_1", "张伟", 1, map[string]int{"stn_1": 2}),
				employee("emp_2", "李静", 1, map[string]int{"stn_1": 3}),
			},
		)
		s.GenerateSchedule(nil)
		return s
	}

	t.Run("writes one entry per assigned slot", func(t *testing.T) {
		s := setup()
		entries, err := s.FinalizeDay("2026-08-31", 8)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, entry := range entries {
			require.Equal(t, "2026-08-31", entry.LogDate)
			require.Equal(t, "stn_1", entry.StationID)
			require.Equal(t, 8.0, entry.Hours)
		}
		require.Len(t, s.Logs(), 2)
	})

	t.Run("refinalizing the same day overwrites instead of duplicating", func(t *testing.T) {
		s := setup()
		_, err := s.FinalizeDay("2026-08-31", 8)
		require.NoError(t, err)

		_, err = s.FinalizeDay("2026-08-31", 6)
		require.NoError(t, err)

		require.Len(t, s.Logs(), 2)
		for _, entry := range s.Logs() {
			require.Equal(t, 6.0, entry.Hours)
		}
	})

	t.Run("invalid date is rejected", func(t *testing.T) {
		s := setup()
		_, err := s.FinalizeDay("昨天", 8)
		require.Error(t, err)
	})
}

func TestRemoveStation(t *testing.T) {
	s := newTestScheduler(
		[]*domain.Station{
			station("stn_1", "装配", 1, 1, 0),
			station("stn_2", "包装", 0, 1, 0),
		},
		[]*domain.Employee{
			employee("emp_1", "张伟", 0, map[string]int{"stn_1": 2, "stn_2": 1}),
		},
	)
	s.GenerateSchedule(nil)
	require.Equal(t, []string{"emp_1"}, s.assignments["stn_1"].AssignedEmployeeIDs)

	require.NoError(t, s.RemoveStation("stn_1"))

	// 级联：熟练度表、当前安排、录入顺序都不再引用该工位
	require.NotContains(t, s.employees["emp_1"].StationCompetencies, "stn_1")
	require.NotContains(t, s.assignments, "stn_1")
	require.NotContains(t, s.stationOrder, "stn_1")
	require.Contains(t, s.AvailableEmployees(), "emp_1")

	require.ErrorIs(t, s.RemoveStation("stn_1"), ErrUnknownStation)
}

func TestRemoveEmployee(t *testing.T) {
	s := newTestScheduler(
		[]*domain.Station{station("stn_1", "装配", 1, 1, 0)},
		[]*domain.Employee{employee("emp_1", "张伟", 0, map[string]int{"stn_1": 2})},
	)
	s.GenerateSchedule(nil)

	require.NoError(t, s.RemoveEmployee("emp_1"))
	require.Empty(t, s.AvailableEmployees())
	require.Equal(t, 1, s.assignments["stn_1"].UnfilledSlots)

	require.ErrorIs(t, s.RemoveEmployee("emp_1"), ErrUnknownEmployee)
}

func TestSummary(t *testing.T) {
	s := newTestScheduler(
		[]*domain.Station{
			station("stn_1", "装配", 1, 2, 0),
			station("stn_2", "包装", 0, 1, 0),
		},
		[]*domain.Employee{
			employee("emp_1", "张伟", 0, map[string]int{"stn_1": 2, "stn_2": 1}),
		},
	)
	s.GenerateSchedule(nil)

	summaries := s.Summary()
	require.Len(t, summaries, 2)
	// 概览按工位录入顺序排列
	require.Equal(t, "stn_1", summaries[0].StationID)
	require.Equal(t, 1, summaries[0].Filled)
	require.Equal(t, 2, summaries[0].Required)
	require.False(t, summaries[0].IsFullyStaffed)
}
