package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

// UpsertAssignmentLogs 按 (日期, 员工, 工位) 自然键写入轮岗记录，重复定稿时覆盖工时
func (r *Repository) UpsertAssignmentLogs(logs []domain.AssignmentLog) error {
	if len(logs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO assignment_logs (log_date, employee_id, station_id, hours)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (log_date, employee_id, station_id) DO UPDATE SET hours = EXCLUDED.hours
	`

	for _, log := range logs {
		if _, err := tx.ExecContext(ctx, query, log.LogDate, log.EmployeeID, log.StationID, log.Hours); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetAssignmentLogsSince 返回某个日期（含）之后的所有轮岗记录
func (r *Repository) GetAssignmentLogsSince(since string) ([]domain.AssignmentLog, error) {
	query := `
		SELECT log_date, employee_id, station_id, hours
		FROM assignment_logs
		WHERE log_date >= $1
		ORDER BY log_date, employee_id, station_id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AssignmentLog, 0)
	for rows.Next() {
		var log domain.AssignmentLog
		if err := rows.Scan(&log.LogDate, &log.EmployeeID, &log.StationID, &log.Hours); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}
