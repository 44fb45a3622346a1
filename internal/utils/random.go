package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var roles = []domain.Role{
	domain.RoleOperator,
	domain.RoleAdmin,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, pinyin := range pinyinArray {
		length := rand.Intn(len(pinyin)) + 1
		username += pinyin[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FullName:     fullName,
		Email:        username + "@" + emailDomainName,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	random_password := make([]rune, length)
	for i := range random_password {
		random_password[i] = letters[rand.Intn(len(letters))]
	}
	return string(random_password)
}

// 车间里常见的工位名，按大致的技能要求从低到高排列
var stationNamePool = []string{
	"包装台", "物料分拣", "目视检验", "装配一线", "装配二线",
	"贴片机", "波峰焊", "数控车床", "激光焊接", "终检校准",
}

// GenerateRandomStation 生成一个随机工位，技能要求越高的工位需求人数越少
func GenerateRandomStation(index int) *domain.Station {
	name := stationNamePool[index%len(stationNamePool)]
	skill := rand.Intn(4) + 1 // 1~4，0 表示无要求的工位不参与排班

	headcount := rand.Intn(4) + 1
	if skill >= domain.SkillLicensed {
		headcount = rand.Intn(2) + 1
	}

	certification := domain.CertificationNone
	if skill >= domain.SkillLicensed {
		certification = rand.Intn(2) + 1 // 高技能工位至少要求学徒认证
	}

	return &domain.Station{
		ID:                    fmt.Sprintf("ST-%03d", index+1),
		Name:                  fmt.Sprintf("%s%d号", name, index/len(stationNamePool)+1),
		RequiredSkillLevel:    skill,
		RequiredHeadcount:     headcount,
		RequiredCertification: certification,
	}
}

// GenerateRandomEmployee 生成一个随机员工，并随机掌握一部分工位的技能
func GenerateRandomEmployee(index int, stations []*domain.Station) *domain.Employee {
	employee := &domain.Employee{
		ID:                  fmt.Sprintf("EMP-%04d", index+1),
		Name:                GenerateRandomChineseName(),
		CertificationLevel:  rand.Intn(3),
		StationCompetencies: make(map[string]int),
	}

	for _, station := range stations {
		// 大约掌握六成的工位
		if rand.Intn(10) < 6 {
			employee.StationCompetencies[station.ID] = rand.Intn(5)
		}
	}

	return employee
}

// GenerateRandomAssignmentLogs 为一批员工生成过去若干天的轮岗历史，
// 只会把员工安排到其合格的工位上
func GenerateRandomAssignmentLogs(stations []*domain.Station, employees []*domain.Employee, days int, asOf string) []domain.AssignmentLog {
	logs := []domain.AssignmentLog{}

	for dayOffset := 1; dayOffset <= days; dayOffset++ {
		logDate := shiftDate(asOf, -dayOffset)
		for _, employee := range employees {
			// 模拟大约七成的出勤率
			if rand.Intn(10) >= 7 {
				continue
			}

			qualified := []*domain.Station{}
			for _, station := range stations {
				if employee.CertificationLevel >= station.RequiredCertification &&
					employee.GetCompetency(station.ID) >= station.RequiredSkillLevel {
					qualified = append(qualified, station)
				}
			}
			if len(qualified) == 0 {
				continue
			}

			station := qualified[rand.Intn(len(qualified))]
			logs = append(logs, domain.AssignmentLog{
				LogDate:    logDate,
				EmployeeID: employee.ID,
				StationID:  station.ID,
				Hours:      float64(rand.Intn(5) + 4), // 4~8 小时
			})
		}
	}

	return logs
}

// shiftDate 在 YYYY-MM-DD 日期上加减天数
func shiftDate(date string, days int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		t = time.Now()
	}
	return t.AddDate(0, 0, days).Format("2006-01-02")
}
