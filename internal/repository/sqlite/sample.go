package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/biobank/internal/apperror"
	"github.com/sakif/biobank/internal/model"
	"github.com/sakif/biobank/internal/repository"
)

// compile-time check that *DB implements repository.SampleRepository
var _ repository.SampleRepository = (*DB)(nil)

const sampleColumns = `id, sample_id, sample_type, subject_id, collection_date,
	status, storage_location, user_id, created_at, updated_at`

// CreateSample inserts a new sample. The ID and timestamps are generated
// here; the owner and tracking identifier come in on the struct, set by the
// service.
func (db *DB) CreateSample(ctx context.Context, sample *model.Sample) error {
	sample.ID = xid.New().String()

	now := time.Now()
	sample.CreatedAt = now
	sample.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO samples (id, sample_id, sample_type, subject_id, collection_date,
		 status, storage_location, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.ID,
		sample.SampleUUID,
		string(sample.Type),
		sample.SubjectID,
		sample.CollectionDate,
		string(sample.Status),
		sample.StorageLocation,
		sample.UserID,
		sample.CreatedAt,
		sample.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("sample", "sample identifier already exists")
		}
		return fmt.Errorf("sqlite: creating sample: %w", err)
	}

	return nil
}

// GetSampleByID retrieves a sample by its primary id. The ownership check
// happens in the service layer, which needs the row to decide between
// NotFound and Forbidden.
func (db *DB) GetSampleByID(ctx context.Context, id string) (*model.Sample, error) {
	var s model.Sample

	err := db.conn.QueryRowContext(ctx,
		`SELECT `+sampleColumns+` FROM samples WHERE id = ?`,
		id,
	).Scan(
		&s.ID,
		&s.SampleUUID,
		&s.Type,
		&s.SubjectID,
		&s.CollectionDate,
		&s.Status,
		&s.StorageLocation,
		&s.UserID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("sample", id)
		}
		return nil, fmt.Errorf("sqlite: getting sample %s: %w", id, err)
	}

	return &s, nil
}

// ListSamples returns one page of the owner's samples, newest first, plus
// the total count under the same predicates. The owner condition is built
// first and is never optional.
func (db *DB) ListSamples(ctx context.Context, ownerID string, filter repository.SampleFilter, opts repository.ListOptions) ([]model.Sample, int, error) {
	where, args := sampleWhere(ownerID, filter)

	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM samples WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting samples: %w", err)
	}

	query := `SELECT ` + sampleColumns + ` FROM samples WHERE ` + where +
		` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, max(opts.Skip, 0))
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing samples: %w", err)
	}
	defer rows.Close()

	samples := make([]model.Sample, 0)
	for rows.Next() {
		var s model.Sample
		if err := rows.Scan(
			&s.ID, &s.SampleUUID, &s.Type, &s.SubjectID, &s.CollectionDate,
			&s.Status, &s.StorageLocation, &s.UserID, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning sample row: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating samples: %w", err)
	}

	return samples, total, nil
}

// sampleWhere builds the WHERE clause for list and count queries. The
// mandatory owner predicate always comes first; filter fields are added only
// when set.
func sampleWhere(ownerID string, filter repository.SampleFilter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{ownerID}

	if filter.Type != "" {
		conds = append(conds, "sample_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if !filter.CollectedFrom.IsZero() {
		conds = append(conds, "collection_date >= ?")
		args = append(args, filter.CollectedFrom)
	}
	if !filter.CollectedTo.IsZero() {
		conds = append(conds, "collection_date <= ?")
		args = append(args, filter.CollectedTo)
	}
	if filter.StorageLocation != "" {
		conds = append(conds, "storage_location LIKE ?")
		args = append(args, "%"+filter.StorageLocation+"%")
	}

	return strings.Join(conds, " AND "), args
}

// UpdateSample rewrites a sample's mutable columns. The id, tracking id,
// owner, and created_at never change.
func (db *DB) UpdateSample(ctx context.Context, sample *model.Sample) error {
	sample.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE samples
		 SET sample_type = ?, subject_id = ?, collection_date = ?, status = ?,
		     storage_location = ?, updated_at = ?
		 WHERE id = ?`,
		string(sample.Type),
		sample.SubjectID,
		sample.CollectionDate,
		string(sample.Status),
		sample.StorageLocation,
		sample.UpdatedAt,
		sample.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating sample %s: %w", sample.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("sample", sample.ID)
	}

	return nil
}

// DeleteSample removes a sample permanently.
func (db *DB) DeleteSample(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM samples WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting sample %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("sample", id)
	}

	return nil
}

// SampleStats aggregates the owner's samples with GROUP BY queries. The
// owner predicate is part of every query; rows are never fetched and
// filtered in process. All enum buckets are present, zero or not, and Total
// is the sum of the status buckets.
func (db *DB) SampleStats(ctx context.Context, ownerID string) (*model.SampleStats, error) {
	stats := &model.SampleStats{
		ByStatus: make(map[model.SampleStatus]int, len(model.SampleStatuses)),
		ByType:   make(map[model.SampleType]int, len(model.SampleTypes)),
	}
	for _, s := range model.SampleStatuses {
		stats.ByStatus[s] = 0
	}
	for _, tp := range model.SampleTypes {
		stats.ByType[tp] = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM samples WHERE user_id = ? GROUP BY status`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting samples by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status model.SampleStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating status counts: %w", err)
	}

	typeRows, err := db.conn.QueryContext(ctx,
		`SELECT sample_type, COUNT(*) FROM samples WHERE user_id = ? GROUP BY sample_type`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting samples by type: %w", err)
	}
	defer typeRows.Close()

	for typeRows.Next() {
		var sampleType model.SampleType
		var count int
		if err := typeRows.Scan(&sampleType, &count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning type count: %w", err)
		}
		stats.ByType[sampleType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating type counts: %w", err)
	}

	return stats, nil
}
