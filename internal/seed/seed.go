package seed

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/utils"
)

// SeedRoster 从花名册 CSV 导入员工及其熟练度评级。
// 表头格式：工号,姓名,认证等级,ST-001,ST-002,...，工位列的值为 0~4 的熟练度，
// 留空表示未掌握该工位。
func SeedRoster(r *repository.Repository, path string) {
	file, err := os.Open(path)
	if err != nil {
		slog.Error("打开文件失败", "error", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		slog.Error("读取表头失败", "error", err)
		return
	}

	stationHeaderArray := []string{}
	infoHeaderArray := []string{}
	for _, header := range headers {
		if strings.HasPrefix(header, "ST-") {
			// 表示这列是某个工位的熟练度
			stationHeaderArray = append(stationHeaderArray, header)
		} else {
			// 表示这个是信息列
			infoHeaderArray = append(infoHeaderArray, header)
		}
	}

	if len(stationHeaderArray) == 0 || len(infoHeaderArray) == 0 {
		slog.Error("没有找到工位列或信息列")
		return
	}

	// 校验工位列指向的工位都已经存在
	stations, err := r.GetAllStations()
	if err != nil {
		slog.Error("获取工位列表失败", "error", err)
		return
	}
	knownStations := make(map[string]bool, len(stations))
	for _, station := range stations {
		knownStations[station.ID] = true
	}
	for _, header := range stationHeaderArray {
		if !knownStations[header] {
			slog.Error("花名册中的工位不存在", "stationID", header)
			return
		}
	}

	// 读取数据
	var records []map[string]string
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("读取文件失败", "error", err)
			return
		}

		record := make(map[string]string)
		for i, value := range row {
			record[headers[i]] = value
		}
		records = append(records, record)
	}

	// 插入员工及其熟练度评级
	cnt := 0
	for _, record := range records {
		employeeID := record["工号"]
		if employeeID == "" {
			slog.Error("没有找到工号", "record", record)
			continue
		}

		// 已经存在的员工跳过，不覆盖现有评级
		if _, err := r.GetEmployeeByID(employeeID); err == nil {
			slog.Info("员工已存在，跳过", "employeeID", employeeID)
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("获取员工失败", "error", err)
			continue
		}

		certLevel, err := strconv.Atoi(record["认证等级"])
		if err != nil {
			slog.Error("转换认证等级失败", "employeeID", employeeID, "value", record["认证等级"])
			continue
		}

		employee := &domain.Employee{
			ID:                  employeeID,
			Name:                record["姓名"],
			CertificationLevel:  certLevel,
			StationCompetencies: make(map[string]int),
		}

		for _, stationID := range stationHeaderArray {
			value := record[stationID]
			if value == "" {
				continue
			}

			level, err := strconv.Atoi(value)
			if err != nil {
				slog.Error("转换熟练度失败", "employeeID", employeeID, "stationID", stationID, "value", value)
				continue
			}
			employee.StationCompetencies[stationID] = level
		}

		if err := utils.ValidateEmployeeCompetencies(employee, stations); err != nil {
			slog.Error("员工数据校验失败", "error", err)
			continue
		}

		if err := r.CreateEmployee(employee); err != nil {
			slog.Error("插入员工失败", "error", err)
			continue
		}

		cnt++
	}

	slog.Info("插入数据完成", "count", cnt)
}
