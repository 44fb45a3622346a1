package domain

import "time"

// 技能等级（0~4）
const (
	SkillNotApplicable = 0
	SkillGeneral       = 1
	SkillIntermediate  = 2
	SkillLicensed      = 3
	SkillTrainer       = 4
)

// 认证等级（0~2）
const (
	CertificationNone       = 0
	CertificationApprentice = 1
	CertificationLicensed   = 2
)

type Station struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	RequiredSkillLevel    int       `json:"requiredSkillLevel"`
	RequiredHeadcount     int       `json:"requiredHeadcount"`
	RequiredCertification int       `json:"requiredCertification"`
	CreatedAt             time.Time `json:"createdAt"`
	Version               int32     `json:"-"`
}
