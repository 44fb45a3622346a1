package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/scheduler"
)

// scheduleDateParam 从 query 中取排班日期，缺省为今天
func (h *Handler) scheduleDateParam(r *http.Request) (string, error) {
	scheduleDate := r.URL.Query().Get("date")
	if scheduleDate == "" {
		return time.Now().Format("2006-01-02"), nil
	}
	if _, err := time.Parse("2006-01-02", scheduleDate); err != nil {
		return "", errors.New("日期格式无效，应为 YYYY-MM-DD")
	}
	return scheduleDate, nil
}

// buildScheduler 基于数据库当前的工位、员工和窗口内的历史记录新建排班引擎
func (h *Handler) buildScheduler(scheduleDate string) (*scheduler.Scheduler, error) {
	stations, err := h.repository.GetAllStations()
	if err != nil {
		return nil, err
	}
	employees, err := h.repository.GetAllEmployees()
	if err != nil {
		return nil, err
	}

	asOf, err := time.Parse("2006-01-02", scheduleDate)
	if err != nil {
		return nil, err
	}
	since := asOf.AddDate(0, 0, -h.config.Scheduler.RotationWindowDays).Format("2006-01-02")
	logs, err := h.repository.GetAssignmentLogsSince(since)
	if err != nil {
		return nil, err
	}

	engine := scheduler.New(stations, employees)
	engine.SetRotationWindow(h.config.Scheduler.RotationWindowDays)
	engine.SetLogs(logs)
	return engine, nil
}

// loadScheduler 从快照恢复某天的排班引擎，快照不存在时 state 为 nil
func (h *Handler) loadScheduler(scheduleDate string) (*scheduler.Scheduler, *domain.ScheduleState, error) {
	state, err := h.repository.GetScheduleStateByDate(scheduleDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	engine, err := scheduler.UnmarshalState(state.State)
	if err != nil {
		return nil, nil, err
	}
	return engine, state, nil
}

// saveScheduler 把引擎状态序列化后写回数据库，已有快照时走乐观锁更新
func (h *Handler) saveScheduler(scheduleDate string, engine *scheduler.Scheduler, state *domain.ScheduleState) error {
	data, err := engine.MarshalState()
	if err != nil {
		return err
	}

	if state == nil {
		return h.repository.SaveScheduleState(&domain.ScheduleState{
			ScheduleDate: scheduleDate,
			State:        data,
		})
	}

	state.State = data
	return h.repository.UpdateScheduleState(state)
}

// syncTodaySnapshot 在工位或员工变更后尽力同步当天的排班快照。
// 快照不存在时跳过，同步失败只记录日志，不影响已经成功的数据库写入。
func (h *Handler) syncTodaySnapshot(r *http.Request, mutate func(engine *scheduler.Scheduler) error) {
	scheduleDate := time.Now().Format("2006-01-02")

	engine, state, err := h.loadScheduler(scheduleDate)
	if err != nil {
		slog.Warn("同步当天排班快照失败", "path", r.URL.Path, "error", err)
		return
	}
	if engine == nil {
		return
	}

	if err := mutate(engine); err != nil {
		slog.Warn("同步当天排班快照失败", "path", r.URL.Path, "error", err)
		return
	}

	if err := h.saveScheduler(scheduleDate, engine, state); err != nil {
		slog.Warn("同步当天排班快照失败", "path", r.URL.Path, "error", err)
	}
}

func (h *Handler) GetScenarios(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取排班场景成功", scheduler.ListScenarios())
}

func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Scenario string `json:"scenario"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	weights := scheduler.DefaultScenario()
	if req.Scenario != "" {
		var err error
		weights, err = scheduler.LookupScenario(req.Scenario)
		if err != nil {
			h.errorResponse(w, r, "未知的排班场景")
			return
		}
	}

	scheduleDate, err := h.scheduleDateParam(r)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	// 已有当天快照时沿用其中的班底信息重新生成，否则基于数据库当前数据新建
	engine, state, err := h.loadScheduler(scheduleDate)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if engine == nil {
		engine, err = h.buildScheduler(scheduleDate)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	engine.GenerateSchedule(&weights)

	if err := h.saveScheduler(scheduleDate, engine, state); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "班表已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "生成班表成功", map[string]any{
		"scheduleDate": scheduleDate,
		"scenario":     engine.Scenario(),
		"summary":      engine.Summary(),
	})
}

func (h *Handler) RebalanceStation(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	scheduleDate, err := h.scheduleDateParam(r)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	engine, state, err := h.loadScheduler(scheduleDate)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if engine == nil {
		h.errorResponse(w, r, "当天还没有生成班表")
		return
	}

	changed, err := engine.RebalanceSchedule(stationID)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrUnknownStation):
			h.errorResponse(w, r, "工位不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.saveScheduler(scheduleDate, engine, state); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "班表已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "重平衡完成", map[string]any{
		"changed":    changed,
		"assignment": engine.Assignments()[stationID],
	})
}

func (h *Handler) OverrideAssignment(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	var req struct {
		EmployeeIDs []string `json:"employeeIDs" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	scheduleDate, err := h.scheduleDateParam(r)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	engine, state, err := h.loadScheduler(scheduleDate)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if engine == nil {
		h.errorResponse(w, r, "当天还没有生成班表")
		return
	}

	assignment, err := engine.OverrideAssignment(stationID, req.EmployeeIDs)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	if err := h.saveScheduler(scheduleDate, engine, state); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "班表已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "人工调整成功", assignment)
}

// FinalizeSchedule 把某天的班表固化成轮岗历史记录。存在欠员工位时，
// 会额外向告警邮箱发送一封欠员提醒邮件。
func (h *Handler) FinalizeSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HoursPerSlot float64 `json:"hoursPerSlot" validate:"omitempty,gt=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	scheduleDate, err := h.scheduleDateParam(r)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	engine, state, err := h.loadScheduler(scheduleDate)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if engine == nil {
		h.errorResponse(w, r, "当天还没有生成班表")
		return
	}

	hoursPerSlot := req.HoursPerSlot
	if hoursPerSlot <= 0 {
		hoursPerSlot = h.config.Scheduler.DefaultShiftHours
	}

	entries, err := engine.FinalizeDay(scheduleDate, hoursPerSlot)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	if err := h.repository.UpsertAssignmentLogs(entries); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.saveScheduler(scheduleDate, engine, state); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "班表已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	unfilled := engine.UnfilledStations()
	if len(unfilled) > 0 {
		if err := h.publishUnderstaffedAlert(scheduleDate, engine, unfilled); err != nil {
			// 告警邮件失败不影响定稿结果
			slog.Warn("发送欠员提醒邮件失败", "scheduleDate", scheduleDate, "error", err)
		}
	}

	h.successResponse(w, r, "班表定稿成功", map[string]any{
		"scheduleDate":     scheduleDate,
		"entries":          entries,
		"unfilledStations": unfilled,
	})
}

func (h *Handler) publishUnderstaffedAlert(scheduleDate string, engine *scheduler.Scheduler, unfilled []string) error {
	stations := make([]domain.UnderstaffedStation, 0, len(unfilled))
	assignments := engine.Assignments()
	for _, st := range engine.Stations() {
		assignment, exists := assignments[st.ID]
		if !exists || assignment.IsFullyStaffed {
			continue
		}
		stations = append(stations, domain.UnderstaffedStation{
			StationName:   st.Name,
			UnfilledSlots: assignment.UnfilledSlots,
		})
	}

	mailMessage := domain.MailMessage{
		Type: "understaffed_alert",
		To:   h.config.Alert.Email,
		Data: domain.UnderstaffedAlertMailData{
			ScheduleDate: scheduleDate,
			Stations:     stations,
		},
	}

	mailData, err := json.Marshal(mailMessage)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return h.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	)
}

func (h *Handler) GetScheduleSummary(w http.ResponseWriter, r *http.Request) {
	scheduleDate, err := h.scheduleDateParam(r)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	engine, _, err := h.loadScheduler(scheduleDate)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if engine == nil {
		h.errorResponse(w, r, "当天还没有生成班表")
		return
	}

	h.successResponse(w, r, "获取班表概览成功", map[string]any{
		"scheduleDate": scheduleDate,
		"scenario":     engine.Scenario(),
		"summary":      engine.Summary(),
	})
}

type rotationMatrixRow struct {
	EmployeeID      string  `json:"employeeID"`
	StationID       string  `json:"stationID"`
	TotalHours      float64 `json:"totalHours"`
	DaysSinceLast   int     `json:"daysSinceLast"`
	AssignmentCount int     `json:"assignmentCount"`
}

// GetRotationMatrix 返回窗口内每个 (员工, 工位) 组合的轮换统计
func (h *Handler) GetRotationMatrix(w http.ResponseWriter, r *http.Request) {
	scheduleDate, err := h.scheduleDateParam(r)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	asOf, err := time.Parse("2006-01-02", scheduleDate)
	if err != nil {
		h.errorResponse(w, r, "日期格式无效，应为 YYYY-MM-DD")
		return
	}

	since := asOf.AddDate(0, 0, -h.config.Scheduler.RotationWindowDays).Format("2006-01-02")
	logs, err := h.repository.GetAssignmentLogsSince(since)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	stats := scheduler.BuildRotationStats(logs, h.config.Scheduler.RotationWindowDays, asOf)

	rows := make([]rotationMatrixRow, 0, len(stats))
	for _, stat := range stats {
		rows = append(rows, rotationMatrixRow{
			EmployeeID:      stat.EmployeeID,
			StationID:       stat.StationID,
			TotalHours:      stat.TotalHours,
			DaysSinceLast:   stat.DaysSinceLast,
			AssignmentCount: stat.AssignmentCount,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EmployeeID != rows[j].EmployeeID {
			return rows[i].EmployeeID < rows[j].EmployeeID
		}
		return rows[i].StationID < rows[j].StationID
	})

	h.successResponse(w, r, "获取轮换矩阵成功", map[string]any{
		"windowDays": h.config.Scheduler.RotationWindowDays,
		"asOf":       scheduleDate,
		"rows":       rows,
	})
}
