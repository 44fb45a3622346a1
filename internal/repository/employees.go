package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/station-scheduler/backend/internal/domain"
)

// CreateEmployee 在同一个事务里插入员工记录和初始的熟练度评级
func (r *Repository) CreateEmployee(employee *domain.Employee) error {
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
		INSERT INTO employees (id, name, certification_level, is_absent)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, version
	`

	args := []any{employee.ID, employee.Name, employee.CertificationLevel, employee.IsAbsent}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&employee.CreatedAt, &employee.Version); err != nil {
		return err
	}

	query = `
		INSERT INTO employee_competencies (employee_id, station_id, competency_level)
		VALUES ($1, $2, $3)
	`

	for stationID, level := range employee.StationCompetencies {
		if _, err := tx.ExecContext(ctx, query, employee.ID, stationID, level); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetEmployeeByID(id string) (*domain.Employee, error) {
	query := `
		SELECT name, certification_level, is_absent, created_at, version
		FROM employees WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	employee := &domain.Employee{
		ID:                  id,
		StationCompetencies: make(map[string]int),
	}

	dst := []any{&employee.Name, &employee.CertificationLevel, &employee.IsAbsent, &employee.CreatedAt, &employee.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	query = `SELECT station_id, competency_level FROM employee_competencies WHERE employee_id = $1`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var stationID string
		var level int
		if err := rows.Scan(&stationID, &level); err != nil {
			return nil, err
		}
		employee.StationCompetencies[stationID] = level
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return employee, nil
}

// GetAllEmployees 返回所有员工，并把熟练度评级折叠进每个员工的映射里
func (r *Repository) GetAllEmployees() ([]*domain.Employee, error) {
	query := `
		SELECT id, name, certification_level, is_absent, created_at, version
		FROM employees ORDER BY created_at, id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]*domain.Employee, 0)
	byID := make(map[string]*domain.Employee)
	for rows.Next() {
		employee := &domain.Employee{
			StationCompetencies: make(map[string]int),
		}
		dst := []any{&employee.ID, &employee.Name, &employee.CertificationLevel, &employee.IsAbsent, &employee.CreatedAt, &employee.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		employees = append(employees, employee)
		byID[employee.ID] = employee
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	query = `SELECT employee_id, station_id, competency_level FROM employee_competencies`

	compRows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer compRows.Close()

	for compRows.Next() {
		var employeeID, stationID string
		var level int
		if err := compRows.Scan(&employeeID, &stationID, &level); err != nil {
			return nil, err
		}
		if employee, ok := byID[employeeID]; ok {
			employee.StationCompetencies[stationID] = level
		}
	}

	if err := compRows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (r *Repository) UpdateEmployee(employee *domain.Employee) error {
	query := `
		UPDATE employees
		SET
			name = $1,
			certification_level = $2,
			is_absent = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{employee.Name, employee.CertificationLevel, employee.IsAbsent, employee.ID, employee.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&employee.CreatedAt, &employee.Version); err != nil {
		return err
	}

	return nil
}

// ReplaceEmployeeCompetencies 整体替换某个员工的熟练度评级
func (r *Repository) ReplaceEmployeeCompetencies(employeeID string, competencies map[string]int) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM employee_competencies WHERE employee_id = $1`
	if _, err := tx.ExecContext(ctx, query, employeeID); err != nil {
		return err
	}

	query = `
		INSERT INTO employee_competencies (employee_id, station_id, competency_level)
		VALUES ($1, $2, $3)
	`

	for stationID, level := range competencies {
		if _, err := tx.ExecContext(ctx, query, employeeID, stationID, level); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteEmployee(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM employee_competencies WHERE employee_id = $1`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return err
	}

	query = `DELETE FROM employees WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
