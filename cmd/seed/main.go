package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/seed"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var days int
	var rosterPath string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机工位, 3: 插入随机员工, 4: 插入随机轮岗历史, 5: 从花名册导入员工)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&days, "days", 30, "随机轮岗历史覆盖的天数")
	flag.StringVar(&rosterPath, "roster", "./internal/seed/data/roster.csv", "花名册 CSV 路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
				if err != nil {
					slog.Error("无法生成随机用户", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateUser(user); err != nil {
					slog.Error("无法插入用户", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入用户成功", slog.Int("count", n-cnt))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的工位数量")
		} else {
			// 以现有工位数为起点编号，避免主键冲突
			existing, err := repo.GetAllStations()
			if err != nil {
				slog.Error("无法获取工位列表", slog.String("error", err.Error()))
				return
			}

			cnt := n
			for i := 0; i < n; i++ {
				station := utils.GenerateRandomStation(len(existing) + i)
				if err := utils.ValidateStationRequirements(station); err != nil {
					slog.Error("工位数据校验失败", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateStation(station); err != nil {
					slog.Error("无法插入工位", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入工位成功", slog.Int("count", n-cnt))
		}
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
		} else {
			stations, err := repo.GetAllStations()
			if err != nil {
				slog.Error("无法获取工位列表", slog.String("error", err.Error()))
				return
			}

			existing, err := repo.GetAllEmployees()
			if err != nil {
				slog.Error("无法获取员工列表", slog.String("error", err.Error()))
				return
			}

			cnt := n
			for i := 0; i < n; i++ {
				employee := utils.GenerateRandomEmployee(len(existing)+i, stations)
				if err := utils.ValidateEmployeeCompetencies(employee, stations); err != nil {
					slog.Error("员工数据校验失败", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateEmployee(employee); err != nil {
					slog.Error("无法插入员工", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入员工成功", slog.Int("count", n-cnt))
		}
	case 4:
		if days <= 0 {
			slog.Error("请输入合法的天数")
			return
		}

		stations, err := repo.GetAllStations()
		if err != nil {
			slog.Error("无法获取工位列表", slog.String("error", err.Error()))
			return
		}

		employees, err := repo.GetAllEmployees()
		if err != nil {
			slog.Error("无法获取员工列表", slog.String("error", err.Error()))
			return
		}

		if len(stations) == 0 || len(employees) == 0 {
			slog.Error("请先插入工位和员工")
			return
		}

		asOf := time.Now().Format("2006-01-02")
		logs := utils.GenerateRandomAssignmentLogs(stations, employees, days, asOf)
		for i := range logs {
			if err := utils.ValidateAssignmentLog(&logs[i]); err != nil {
				slog.Error("轮岗记录校验失败", slog.String("error", err.Error()))
				return
			}
		}

		if err := repo.UpsertAssignmentLogs(logs); err != nil {
			slog.Error("无法插入轮岗历史", slog.String("error", err.Error()))
			return
		}

		slog.Info("插入轮岗历史成功", slog.Int("count", len(logs)))
	case 5:
		seed.SeedRoster(repo, rosterPath)
	default:
		slog.Error("指定的操作非法")
	}
}
