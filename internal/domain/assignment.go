package domain

// Assignment 表示某个工位在当前排班周期中的人员安排
type Assignment struct {
	StationID           string   `json:"stationID"`
	AssignedEmployeeIDs []string `json:"assignedEmployeeIDs"`
	UnfilledSlots       int      `json:"unfilledSlots"`
	IsFullyStaffed      bool     `json:"isFullyStaffed"`
}

// AssignmentLog 是一条不可变的历史记录，自然键为 (LogDate, EmployeeID, StationID)
type AssignmentLog struct {
	LogDate    string  `json:"logDate"` // 格式为 2006-01-02
	EmployeeID string  `json:"employeeID"`
	StationID  string  `json:"stationID"`
	Hours      float64 `json:"hours"`
}
