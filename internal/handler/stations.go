package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/scheduler"
)

func (h *Handler) GetAllStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.repository.GetAllStations()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取工位列表成功", stations)
}

func (h *Handler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID                    string `json:"id" validate:"required"`
		Name                  string `json:"name" validate:"required"`
		RequiredSkillLevel    int    `json:"requiredSkillLevel" validate:"min=0,max=4"`
		RequiredHeadcount     int    `json:"requiredHeadcount" validate:"required,min=1"`
		RequiredCertification int    `json:"requiredCertification" validate:"min=0,max=2"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	station := &domain.Station{
		ID:                    req.ID,
		Name:                  req.Name,
		RequiredSkillLevel:    req.RequiredSkillLevel,
		RequiredHeadcount:     req.RequiredHeadcount,
		RequiredCertification: req.RequiredCertification,
	}

	if err := h.repository.CreateStation(station); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "stations_pkey":
			h.badRequest(w, r, errors.New("工位编号已存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		engine.UpsertStation(station)
		return nil
	})

	h.successResponse(w, r, "工位创建成功", station)
}

func (h *Handler) GetStation(w http.ResponseWriter, r *http.Request) {
	station := r.Context().Value(StationInfoCtx).(*domain.Station)
	h.successResponse(w, r, "获取工位信息成功", station)
}

func (h *Handler) UpdateStation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                  *string `json:"name"`
		RequiredSkillLevel    *int    `json:"requiredSkillLevel" validate:"omitempty,min=0,max=4"`
		RequiredHeadcount     *int    `json:"requiredHeadcount" validate:"omitempty,min=1"`
		RequiredCertification *int    `json:"requiredCertification" validate:"omitempty,min=0,max=2"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	station := r.Context().Value(StationInfoCtx).(*domain.Station)

	if req.Name != nil {
		station.Name = *req.Name
	}
	if req.RequiredSkillLevel != nil {
		station.RequiredSkillLevel = *req.RequiredSkillLevel
	}
	if req.RequiredHeadcount != nil {
		station.RequiredHeadcount = *req.RequiredHeadcount
	}
	if req.RequiredCertification != nil {
		station.RequiredCertification = *req.RequiredCertification
	}

	if err := h.repository.UpdateStation(station); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新工位信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		engine.UpsertStation(station)
		return nil
	})

	h.successResponse(w, r, "更新工位信息成功", station)
}

func (h *Handler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	station := r.Context().Value(StationInfoCtx).(*domain.Station)

	if err := h.repository.DeleteStation(station.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.syncTodaySnapshot(r, func(engine *scheduler.Scheduler) error {
		return engine.RemoveStation(station.ID)
	})

	h.successResponse(w, r, "删除工位成功", nil)
}
