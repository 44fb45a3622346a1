package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

func (r *Repository) GetScheduleStateByDate(scheduleDate string) (*domain.ScheduleState, error) {
	query := `
		SELECT state, created_at, version
		FROM schedule_states WHERE schedule_date = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	state := &domain.ScheduleState{
		ScheduleDate: scheduleDate,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, scheduleDate).Scan(&state.State, &state.CreatedAt, &state.Version); err != nil {
		return nil, err
	}

	return state, nil
}

// SaveScheduleState 首次写入某天的排班快照
func (r *Repository) SaveScheduleState(state *domain.ScheduleState) error {
	query := `
		INSERT INTO schedule_states (schedule_date, state)
		VALUES ($1, $2)
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, state.ScheduleDate, state.State).Scan(&state.CreatedAt, &state.Version); err != nil {
		return err
	}

	return nil
}

// UpdateScheduleState 基于版本号的乐观锁更新，避免并发排班互相覆盖
func (r *Repository) UpdateScheduleState(state *domain.ScheduleState) error {
	query := `
		UPDATE schedule_states
		SET
			state = $1,
			version = version + 1
		WHERE schedule_date = $2 AND version = $3
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, state.State, state.ScheduleDate, state.Version).Scan(&state.CreatedAt, &state.Version); err != nil {
		return err
	}

	return nil
}
