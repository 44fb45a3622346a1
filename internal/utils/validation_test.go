package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

func TestValidateStationRequirements(t *testing.T) {
	t.Run("合法的工位", func(t *testing.T) {
		err := ValidateStationRequirements(&domain.Station{
			ID:                    "ST-001",
			RequiredSkillLevel:    domain.SkillIntermediate,
			RequiredHeadcount:     2,
			RequiredCertification: domain.CertificationApprentice,
		})
		require.NoError(t, err)
	})

	t.Run("技能等级超出范围", func(t *testing.T) {
		err := ValidateStationRequirements(&domain.Station{
			ID:                 "ST-002",
			RequiredSkillLevel: 5,
			RequiredHeadcount:  1,
		})
		require.Error(t, err)
	})

	t.Run("需求人数小于一", func(t *testing.T) {
		err := ValidateStationRequirements(&domain.Station{
			ID:                 "ST-003",
			RequiredSkillLevel: domain.SkillGeneral,
			RequiredHeadcount:  0,
		})
		require.Error(t, err)
	})
}

func TestValidateEmployeeCompetencies(t *testing.T) {
	stations := []*domain.Station{
		{ID: "ST-001", RequiredHeadcount: 1},
		{ID: "ST-002", RequiredHeadcount: 1},
	}

	t.Run("合法的员工", func(t *testing.T) {
		err := ValidateEmployeeCompetencies(&domain.Employee{
			ID:                 "EMP-0001",
			CertificationLevel: domain.CertificationLicensed,
			StationCompetencies: map[string]int{
				"ST-001": domain.SkillTrainer,
				"ST-002": domain.SkillNotApplicable,
			},
		}, stations)
		require.NoError(t, err)
	})

	t.Run("评级指向不存在的工位", func(t *testing.T) {
		err := ValidateEmployeeCompetencies(&domain.Employee{
			ID:                  "EMP-0002",
			StationCompetencies: map[string]int{"ST-999": domain.SkillGeneral},
		}, stations)
		require.Error(t, err)
	})

	t.Run("熟练度超出范围", func(t *testing.T) {
		err := ValidateEmployeeCompetencies(&domain.Employee{
			ID:                  "EMP-0003",
			StationCompetencies: map[string]int{"ST-001": 7},
		}, stations)
		require.Error(t, err)
	})
}

func TestValidateAssignmentLog(t *testing.T) {
	t.Run("合法的记录", func(t *testing.T) {
		err := ValidateAssignmentLog(&domain.AssignmentLog{
			LogDate:    "2026-08-30",
			EmployeeID: "EMP-0001",
			StationID:  "ST-001",
			Hours:      8,
		})
		require.NoError(t, err)
	})

	t.Run("日期格式错误", func(t *testing.T) {
		err := ValidateAssignmentLog(&domain.AssignmentLog{
			LogDate:    "08/30/2026",
			EmployeeID: "EMP-0001",
			StationID:  "ST-001",
			Hours:      8,
		})
		require.Error(t, err)
	})

	t.Run("工时必须大于零", func(t *testing.T) {
		err := ValidateAssignmentLog(&domain.AssignmentLog{
			LogDate:    "2026-08-30",
			EmployeeID: "EMP-0001",
			StationID:  "ST-001",
			Hours:      0,
		})
		require.Error(t, err)
	})
}
