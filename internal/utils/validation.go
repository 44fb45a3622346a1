package utils

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

func ValidateStationRequirements(station *domain.Station) error {
	if station.RequiredSkillLevel < domain.SkillNotApplicable || station.RequiredSkillLevel > domain.SkillTrainer {
		return fmt.Errorf("工位 %s 的技能等级要求超出范围", station.ID)
	}
	if station.RequiredCertification < domain.CertificationNone || station.RequiredCertification > domain.CertificationLicensed {
		return fmt.Errorf("工位 %s 的认证等级要求超出范围", station.ID)
	}
	if station.RequiredHeadcount < 1 {
		return fmt.Errorf("工位 %s 的需求人数不能小于 1", station.ID)
	}
	return nil
}

func ValidateEmployeeCompetencies(employee *domain.Employee, stations []*domain.Station) error {
	if employee.CertificationLevel < domain.CertificationNone || employee.CertificationLevel > domain.CertificationLicensed {
		return fmt.Errorf("员工 %s 的认证等级超出范围", employee.ID)
	}

	known := make(map[string]bool, len(stations))
	for _, station := range stations {
		known[station.ID] = true
	}

	for stationID, level := range employee.StationCompetencies {
		if !known[stationID] {
			return fmt.Errorf("员工 %s 的熟练度评级指向不存在的工位 %s", employee.ID, stationID)
		}
		if level < domain.SkillNotApplicable || level > domain.SkillTrainer {
			return fmt.Errorf("员工 %s 在工位 %s 的熟练度超出范围", employee.ID, stationID)
		}
	}
	return nil
}

func ValidateAssignmentLog(log *domain.AssignmentLog) error {
	if _, err := time.Parse("2006-01-02", log.LogDate); err != nil {
		return fmt.Errorf("轮岗记录的日期 %q 格式错误", log.LogDate)
	}
	if log.EmployeeID == "" || log.StationID == "" {
		return fmt.Errorf("轮岗记录缺少员工或工位编号")
	}
	if log.Hours <= 0 {
		return fmt.Errorf("轮岗记录的工时必须大于 0")
	}
	return nil
}
