package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

func (r *Repository) CreateStation(station *domain.Station) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO stations (id, name, required_skill_level, required_headcount, required_certification)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, version
	`

	args := []any{station.ID, station.Name, station.RequiredSkillLevel, station.RequiredHeadcount, station.RequiredCertification}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&station.CreatedAt, &station.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetStationByID(id string) (*domain.Station, error) {
	query := `
		SELECT name, required_skill_level, required_headcount, required_certification, created_at, version
		FROM stations WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	station := &domain.Station{
		ID: id,
	}

	dst := []any{&station.Name, &station.RequiredSkillLevel, &station.RequiredHeadcount, &station.RequiredCertification, &station.CreatedAt, &station.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return station, nil
}

// GetAllStations 按创建顺序返回所有工位（排班引擎依赖这个顺序做同分时的填充次序）
func (r *Repository) GetAllStations() ([]*domain.Station, error) {
	query := `
		SELECT id, name, required_skill_level, required_headcount, required_certification, created_at, version
		FROM stations ORDER BY created_at, id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]*domain.Station, 0)
	for rows.Next() {
		station := &domain.Station{}
		dst := []any{&station.ID, &station.Name, &station.RequiredSkillLevel, &station.RequiredHeadcount, &station.RequiredCertification, &station.CreatedAt, &station.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stations, nil
}

func (r *Repository) UpdateStation(station *domain.Station) error {
	query := `
		UPDATE stations
		SET
			name = $1,
			required_skill_level = $2,
			required_headcount = $3,
			required_certification = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{station.Name, station.RequiredSkillLevel, station.RequiredHeadcount, station.RequiredCertification, station.ID, station.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&station.CreatedAt, &station.Version); err != nil {
		return err
	}

	return nil
}

// DeleteStation 删除工位并在同一个事务里级联删除所有员工对该工位的熟练度评级
func (r *Repository) DeleteStation(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM employee_competencies WHERE station_id = $1`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return err
	}

	query = `DELETE FROM stations WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
