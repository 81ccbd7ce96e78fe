package repository

import (
	"database/sql"

	"github.com/sysu-ecnc-dev/partition-optimizer/backend/internal/domain"
)

// CreateRoster 在一个事务中插入名单以及它的全部记录，记录的顺序通过 position 保存
func (r *Repository) CreateRoster(roster *domain.Roster, records *domain.RosterRecords) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO rosters (name, description, unit_count, bucket_count, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`
	args := []any{roster.Name, roster.Description, roster.UnitCount, roster.BucketCount, roster.CreatedBy}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&roster.ID, &roster.CreatedAt, &roster.Version); err != nil {
		return err
	}

	query = `
		INSERT INTO roster_enrollments (
			roster_id, position, unit_id, last_name, first_name, middle_name,
			course_number, course_name, course_id, room, period
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for i, e := range records.Enrollments {
		args := []any{roster.ID, i, e.UnitID, e.LastName, e.FirstName, e.MiddleName, e.CourseNumber, e.CourseName, e.CourseID, e.Room, e.Period}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	query = `
		INSERT INTO roster_pairings (roster_id, position, unit_id_1, unit_id_2)
		VALUES ($1, $2, $3, $4)
	`
	for i, p := range records.Pairings {
		if _, err := tx.ExecContext(ctx, query, roster.ID, i, p.UnitID1, p.UnitID2); err != nil {
			return err
		}
	}

	query = `
		INSERT INTO roster_preferred_group_members (roster_id, group_position, position, unit_id)
		VALUES ($1, $2, $3, $4)
	`
	for i, g := range records.PreferredGroups {
		for j, id := range g.UnitIDs {
			if _, err := tx.ExecContext(ctx, query, roster.ID, i, j, id); err != nil {
				return err
			}
		}
	}

	query = `
		INSERT INTO roster_buckets (roster_id, room, period)
		VALUES ($1, $2, $3)
	`
	for _, b := range records.Buckets {
		if _, err := tx.ExecContext(ctx, query, roster.ID, b.Room, b.Period); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllRosters() ([]*domain.Roster, error) {
	query := `
		SELECT id, name, description, unit_count, bucket_count, created_by, created_at, version
		FROM rosters
		ORDER BY id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rosters := make([]*domain.Roster, 0)
	for rows.Next() {
		roster := &domain.Roster{}
		dst := []any{&roster.ID, &roster.Name, &roster.Description, &roster.UnitCount, &roster.BucketCount, &roster.CreatedBy, &roster.CreatedAt, &roster.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		rosters = append(rosters, roster)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rosters, nil
}

func (r *Repository) GetRosterByID(id int64) (*domain.Roster, error) {
	query := `
		SELECT name, description, unit_count, bucket_count, created_by, created_at, version
		FROM rosters WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	roster := &domain.Roster{
		ID: id,
	}

	dst := []any{&roster.Name, &roster.Description, &roster.UnitCount, &roster.BucketCount, &roster.CreatedBy, &roster.CreatedAt, &roster.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return roster, nil
}

func (r *Repository) UpdateRoster(roster *domain.Roster) error {
	query := `
		UPDATE rosters
		SET
			name = $1,
			description = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, roster.Name, roster.Description, roster.ID, roster.Version).Scan(&roster.Version); err != nil {
		return err
	}

	return nil
}

// GetRosterRecords 按插入时的顺序返回名单的全部记录，学生的出现顺序决定了分组序列的布局
func (r *Repository) GetRosterRecords(id int64) (*domain.RosterRecords, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	// 使用只读事务保证几张表读到的是同一个快照
	tx, err := r.dbpool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	records := &domain.RosterRecords{
		Enrollments:     make([]domain.Enrollment, 0),
		Pairings:        make([]domain.Pairing, 0),
		PreferredGroups: make([]domain.PreferredGroup, 0),
		Buckets:         make([]domain.BucketDeclaration, 0),
	}

	query := `
		SELECT unit_id, last_name, first_name, middle_name, course_number, course_name, course_id, room, period
		FROM roster_enrollments
		WHERE roster_id = $1
		ORDER BY position
	`
	rows, err := tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		e := domain.Enrollment{}
		dst := []any{&e.UnitID, &e.LastName, &e.FirstName, &e.MiddleName, &e.CourseNumber, &e.CourseName, &e.CourseID, &e.Room, &e.Period}
		if err := rows.Scan(dst...); err != nil {
			rows.Close()
			return nil, err
		}
		records.Enrollments = append(records.Enrollments, e)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	query = `
		SELECT unit_id_1, unit_id_2
		FROM roster_pairings
		WHERE roster_id = $1
		ORDER BY position
	`
	rows, err = tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		p := domain.Pairing{}
		if err := rows.Scan(&p.UnitID1, &p.UnitID2); err != nil {
			rows.Close()
			return nil, err
		}
		records.Pairings = append(records.Pairings, p)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	query = `
		SELECT group_position, unit_id
		FROM roster_preferred_group_members
		WHERE roster_id = $1
		ORDER BY group_position, position
	`
	rows, err = tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	lastGroup := -1
	for rows.Next() {
		var group int
		var unitID string
		if err := rows.Scan(&group, &unitID); err != nil {
			rows.Close()
			return nil, err
		}
		if group != lastGroup {
			records.PreferredGroups = append(records.PreferredGroups, domain.PreferredGroup{UnitIDs: make([]string, 0)})
			lastGroup = group
		}
		last := &records.PreferredGroups[len(records.PreferredGroups)-1]
		last.UnitIDs = append(last.UnitIDs, unitID)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	query = `
		SELECT room, period
		FROM roster_buckets
		WHERE roster_id = $1
		ORDER BY room, period
	`
	rows, err = tx.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		b := domain.BucketDeclaration{}
		if err := rows.Scan(&b.Room, &b.Period); err != nil {
			rows.Close()
			return nil, err
		}
		records.Buckets = append(records.Buckets, b)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if len(records.Enrollments) == 0 {
		// 名单至少有一条选课记录，查不到说明名单不存在
		return nil, sql.ErrNoRows
	}

	return records, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

func (r *Repository) DeleteRoster(id int64) error {
	query := `
		DELETE FROM rosters WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
