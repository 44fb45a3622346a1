package scheduler

// RotationStats: 某个 (员工, 工位) 在滚动窗口内的聚合统计，按需重算，不做持久化
type RotationStats struct {
	EmployeeID      string
	StationID       string
	TotalHours      float64
	DaysSinceLast   int
	AssignmentCount int
}

// ScenarioWeights: 一组命名的线性加权系数（各权重之和不要求为 1）
type ScenarioWeights struct {
	Name          string  `json:"name"`
	SkillWeight   float64 `json:"skillWeight"`
	RecencyWeight float64 `json:"recencyWeight"`
	FatigueWeight float64 `json:"fatigueWeight"`
	InvertSkill   bool    `json:"invertSkill"` // 为 true 时偏好熟练度低的员工，用于交叉培训
}

const (
	// 轮换统计的默认滚动窗口天数
	DefaultRotationWindowDays = 30

	// 窗口内从未被安排过时 DaysSinceLast 的哨兵值
	neverAssigned = 999

	// 距上次安排超过 30 天后轮换收益不再增加
	recencyCapDays = 30
	// 窗口内疲劳惩罚的小时数上限
	fatigueCapHours = 240.0
	// 熟练度(最高 4) + 认证(最高 2) 的归一化上限
	skillCeiling = 6.0
)

var scenarios = map[string]ScenarioWeights{
	"Balanced":       {Name: "Balanced", SkillWeight: 0.40, RecencyWeight: 0.35, FatigueWeight: 0.25},
	"Max Competency": {Name: "Max Competency", SkillWeight: 0.75, RecencyWeight: 0.10, FatigueWeight: 0.15},
	"Cross-Training": {Name: "Cross-Training", SkillWeight: 0.10, RecencyWeight: 0.55, FatigueWeight: 0.35, InvertSkill: true},
	"Fatigue Aware":  {Name: "Fatigue Aware", SkillWeight: 0.30, RecencyWeight: 0.25, FatigueWeight: 0.45},
	"Fresh Rotation": {Name: "Fresh Rotation", SkillWeight: 0.20, RecencyWeight: 0.60, FatigueWeight: 0.20},
}

// 固定的展示顺序
var scenarioOrder = []string{"Balanced", "Max Competency", "Cross-Training", "Fatigue Aware", "Fresh Rotation"}

var scenarioDescriptions = map[string]string{
	"Balanced":       "默认场景，在熟练度、轮换和疲劳之间均衡取舍",
	"Max Competency": "优先把熟练度最高的员工安排到每个工位",
	"Cross-Training": "优先安排熟练度较低（但合格）的员工，用于培养新技能",
	"Fatigue Aware":  "尽量平摊工时，减少疲劳积累",
	"Fresh Rotation": "最大化轮换，优先安排最近没有做过该工位的员工",
}

// LookupScenario 按名称查找场景权重，未知名称直接报错而不是悄悄退回默认值
func LookupScenario(name string) (ScenarioWeights, error) {
	w, ok := scenarios[name]
	if !ok {
		return ScenarioWeights{}, ErrUnknownScenario
	}
	return w, nil
}

// DefaultScenario 返回 Balanced 场景
func DefaultScenario() ScenarioWeights {
	return scenarios["Balanced"]
}

type ScenarioInfo struct {
	ScenarioWeights
	Description string `json:"description"`
}

// ListScenarios 按固定顺序返回所有可选场景
func ListScenarios() []ScenarioInfo {
	infos := make([]ScenarioInfo, 0, len(scenarioOrder))
	for _, name := range scenarioOrder {
		infos = append(infos, ScenarioInfo{
			ScenarioWeights: scenarios[name],
			Description:     scenarioDescriptions[name],
		})
	}
	return infos
}
