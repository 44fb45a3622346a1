package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/scheduler"
)

func (h *Handler) GetAllEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.repository.GetAllEmployees()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工列表成功", employees)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID                  string         `json:"id" validate:"required"`
		Name                string         `json:"name" validate:"required"`
		CertificationLevel  int            `json:"certificationLevel" validate:"min=0,max=2"`
		StationCompetencies map[string]int `json:"stationCompetencies" validate:"omitempty,dive,min=0,max=4"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	employee := &domain.Employee{
		ID:                  req.ID,
		Name:                req.Name,
		CertificationLevel:  req.CertificationLevel,
		StationCompetencies: req.StationCompetencies,
	}
	if employee.StationCompetencies == nil {
		employee.StationCompetencies = make(map[string]int)
	}

	if err := h.repository.CreateEmployee(employee); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "employees_pkey":
			h.badRequest(w, r, errors.New("员工工号已存在"))
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "employee_competencies_station_id_fkey":
			h.badRequest(w, r, errors.New("熟练度评级指向的工位不存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		engine.UpsertEmployee(employee)
		return nil
	})

	h.successResponse(w, r, "员工创建成功", employee)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)
	h.successResponse(w, r, "获取员工信息成功", employee)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name               *string `json:"name"`
		CertificationLevel *int    `json:"certificationLevel" validate:"omitempty,min=0,max=2"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)

	if req.Name != nil {
		employee.Name = *req.Name
	}
	if req.CertificationLevel != nil {
		employee.CertificationLevel = *req.CertificationLevel
	}

	if err := h.repository.UpdateEmployee(employee); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新员工信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		engine.UpsertEmployee(employee)
		return nil
	})

	h.successResponse(w, r, "更新员工信息成功", employee)
}

func (h *Handler) UpdateEmployeeCompetencies(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StationCompetencies map[string]int `json:"stationCompetencies" validate:"required,dive,min=0,max=4"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)

	if err := h.repository.ReplaceEmployeeCompetencies(employee.ID, req.StationCompetencies); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "employee_competencies_station_id_fkey":
			h.badRequest(w, r, errors.New("熟练度评级指向的工位不存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	employee.StationCompetencies = req.StationCompetencies

	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		engine.UpsertEmployee(employee)
		return nil
	})

	h.successResponse(w, r, "更新熟练度评级成功", employee)
}

// UpdateEmployeeAbsence 上报缺勤或复工。如果当天已经生成了班表，
// 缺勤会触发受影响工位的重平衡，并把受影响的工位 ID 一并返回。
func (h *Handler) UpdateEmployeeAbsence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAbsent *bool `json:"isAbsent" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)
	employee.IsAbsent = *req.IsAbsent

	if err := h.repository.UpdateEmployee(employee); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新缺勤状态失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	affectedStations := []string{}
	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		if *req.IsAbsent {
			affected, err := engine.HandleAbsence(employee.ID)
			if err != nil {
				return err
			}
			affectedStations = affected
			return nil
		}
		return engine.MarkPresent(employee.ID)
	})

	h.successResponse(w, r, "更新缺勤状态成功", map[string]any{
		"employee":         employee,
		"affectedStations": affectedStations,
	})
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	employee := r.Context().Value(EmployeeInfoCtx).(*domain.Employee)

	if err := h.repository.DeleteEmployee(employee.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		return engine.RemoveEmployee(employee.ID)
	})

	h.successResponse(w, r, "删除员工成功", nil)
}
