package domain

import "time"

type Employee struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	CertificationLevel  int            `json:"certificationLevel"`
	StationCompetencies map[string]int `json:"stationCompetencies"`
	IsAbsent            bool           `json:"isAbsent"`
	CreatedAt           time.Time      `json:"createdAt"`
	Version             int32          `json:"-"`
}

// GetCompetency 获取员工在某个工位上的熟练度，没有评级时视为 0
func (e *Employee) GetCompetency(stationID string) int {
	return e.StationCompetencies[stationID]
}

func (e *Employee) SetCompetency(stationID string, level int) {
	if e.StationCompetencies == nil {
		e.StationCompetencies = make(map[string]int)
	}
	e.StationCompetencies[stationID] = level
}
