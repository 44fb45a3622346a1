package scheduler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestScheduler(
		[]*domain.Station{
			station("stn_critical", "精密加工", 3, 2, 1),
			station("stn_general", "装配", 1, 1, 0),
		},
		[]*domain.Employee{
			employee("emp_1", "张伟", 2, map[string]int{"stn_critical": 3, "stn_general": 2}),
			employee("emp_2", "李静", 1, map[string]int{"stn_general": 4}),
			employee("emp_3", "王磊", 0, map[string]int{"stn_general": 1}),
		},
	)

	// 让状态经历一轮真实操作再做往返
	s.GenerateSchedule(nil)
	_, err := s.FinalizeDay("2026-08-30", 8)
	require.NoError(t, err)
	_, err = s.HandleAbsence("emp_3")
	require.NoError(t, err)

	data, err := s.MarshalState()
	require.NoError(t, err)

	restored, err := UnmarshalState(data)
	require.NoError(t, err)
	fixedClock(restored)

	require.Equal(t, s.Snapshot(), restored.Snapshot())
	require.Equal(t, s.AvailableEmployees(), restored.AvailableEmployees())
	require.Equal(t, s.AbsentEmployees(), restored.AbsentEmployees())
	require.Equal(t, s.Scenario(), restored.Scenario())
	require.Equal(t, s.UnfilledStations(), restored.UnfilledStations())
}

func TestFromSnapshotValidation(t *testing.T) {
	base := func() *Snapshot {
		return &Snapshot{
			Stations: []*domain.Station{
				{ID: "stn_1", Name: "装配", RequiredSkillLevel: 1, RequiredHeadcount: 1},
			},
			Employees: []snapshotEmployee{
				{Employee: domain.Employee{ID: "emp_1", Name: "张伟", StationCompetencies: map[string]int{"stn_1": 2}}},
			},
		}
	}

	t.Run("station without id", func(t *testing.T) {
		snapshot := base()
		snapshot.Stations[0].ID = ""
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("employee without id", func(t *testing.T) {
		snapshot := base()
		snapshot.Employees[0].ID = ""
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("assignment referencing unknown station", func(t *testing.T) {
		snapshot := base()
		snapshot.Assignments = []*domain.Assignment{{StationID: "stn_ghost"}}
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("assignment referencing unknown employee", func(t *testing.T) {
		snapshot := base()
		snapshot.Assignments = []*domain.Assignment{
			{StationID: "stn_1", AssignedEmployeeIDs: []string{"emp_ghost"}},
		}
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("employee assigned to two stations", func(t *testing.T) {
		snapshot := base()
		snapshot.Stations = append(snapshot.Stations, &domain.Station{ID: "stn_2", RequiredHeadcount: 1})
		snapshot.Assignments = []*domain.Assignment{
			{StationID: "stn_1", AssignedEmployeeIDs: []string{"emp_1"}},
			{StationID: "stn_2", AssignedEmployeeIDs: []string{"emp_1"}},
		}
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("available and absent must stay disjoint", func(t *testing.T) {
		snapshot := base()
		snapshot.AvailableEmployees = []string{"emp_1"}
		snapshot.AbsentEmployees = []string{"emp_1"}
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrBadSnapshot)
	})

	t.Run("unknown scenario fails fast", func(t *testing.T) {
		snapshot := base()
		snapshot.Scenario = "Crunch Mode"
		_, err := FromSnapshot(snapshot)
		require.ErrorIs(t, err, ErrUnknownScenario)
	})

	t.Run("headcount defaults to one", func(t *testing.T) {
		snapshot := base()
		snapshot.Stations[0].RequiredHeadcount = 0
		s, err := FromSnapshot(snapshot)
		require.NoError(t, err)
		require.Equal(t, 1, s.Stations()[0].RequiredHeadcount)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := UnmarshalState([]byte("{"))
		require.ErrorIs(t, err, ErrBadSnapshot)
	})
}

func TestLegacyEmployeeMigration(t *testing.T) {
	// 旧版格式只有一个整体技能等级，没有分工位的熟练度表，
	// 加载时迁移成空表（所有工位都视为未评级）
	raw := []byte(`{
		"stations": [{"id": "stn_1", "name": "装配", "requiredSkillLevel": 1, "requiredHeadcount": 1}],
		"employees": [{"id": "emp_legacy", "name": "老员工", "certificationLevel": 2, "current_skill_level": 3}]
	}`)

	snapshot := &Snapshot{}
	require.NoError(t, json.Unmarshal(raw, snapshot))
	require.NotNil(t, snapshot.Employees[0].LegacySkillLevel)

	s, err := FromSnapshot(snapshot)
	require.NoError(t, err)

	migrated := s.Employees()[0]
	require.NotNil(t, migrated.StationCompetencies)
	require.Empty(t, migrated.StationCompetencies)
	// 迁移后老员工对要求熟练度 >= 1 的工位不再视为合格
	require.False(t, IsQualified(migrated, s.Stations()[0]))
}
