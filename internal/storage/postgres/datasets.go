package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
	"github.com/nilslice/datadictd/internal/storage/rangequery"
)

const (
	sqlRegisterDataset = `
		INSERT INTO datasets (manager_id, dataset_name, dataset_classification, dataset_compression, dataset_format, dataset_desc, dataset_schema)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING dataset_id, manager_id, dataset_name, dataset_classification, dataset_compression, dataset_format, dataset_desc, dataset_schema, created_at, updated_at`

	sqlFindDataset = `
		SELECT dataset_id, manager_id, dataset_name, dataset_classification, dataset_compression, dataset_format, dataset_desc, dataset_schema, created_at, updated_at
		FROM datasets WHERE dataset_name = $1`

	sqlListDatasets = `
		SELECT dataset_id, manager_id, dataset_name, dataset_classification, dataset_compression, dataset_format, dataset_desc, dataset_schema, created_at, updated_at
		FROM datasets ORDER BY created_at ASC`

	sqlSearchDatasets = `
		SELECT dataset_id, manager_id, dataset_name, dataset_classification, dataset_compression, dataset_format, dataset_desc, dataset_schema, created_at, updated_at
		FROM datasets WHERE dataset_name ILIKE '%' || $1 || '%' ORDER BY created_at ASC`

	sqlDeleteDataset = `DELETE FROM datasets WHERE dataset_name = $1`

	datasetColumns = "dataset_id, manager_id, dataset_name, dataset_classification, dataset_compression, dataset_format, dataset_desc, dataset_schema, created_at, updated_at"
)

func scanDataset(row pgx.Row) (catalog.Dataset, error) {
	var d catalog.Dataset
	var schemaJSON []byte
	err := row.Scan(&d.ID, &d.ManagerID, &d.Name, &d.Classification, &d.Compression, &d.Format, &d.Description, &schemaJSON, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return catalog.Dataset{}, err
	}
	if len(schemaJSON) > 0 {
		if err := json.Unmarshal(schemaJSON, &d.Schema); err != nil {
			return catalog.Dataset{}, err
		}
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// RegisterDataset inserts a new dataset row owned by managerID. A
// duplicate name surfaces as a Sql-kind conflict, matching the HTTP
// surface's pre-check-then-insert flow (§4.5): the pre-check should
// already have rejected duplicates, so this is a defense-in-depth path.
func (s *Store) RegisterDataset(ctx context.Context, managerID int32, cfg catalog.Config) (catalog.Dataset, error) {
	schemaJSON, err := json.Marshal(cfg.Schema)
	if err != nil {
		return catalog.Dataset{}, ddserr.Wrap(ddserr.KindInputValidation, "marshal schema", err)
	}

	row := s.pool.QueryRow(ctx, sqlRegisterDataset, managerID, cfg.Name, cfg.Classification, cfg.Compression, cfg.Format, cfg.Description, schemaJSON)
	d, err := scanDataset(row)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "dataset already exists", err)
		}
		return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "insert dataset", err)
	}
	return d, nil
}

func (s *Store) FindDataset(ctx context.Context, name string) (catalog.Dataset, error) {
	row := s.pool.QueryRow(ctx, sqlFindDataset, name)
	d, err := scanDataset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "dataset not found", err)
		}
		return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "find dataset", err)
	}
	return d, nil
}

// ListDatasets returns datasets ordered by created_at ascending, applying
// params' optional bounds via the range-query builder's dataset form.
func (s *Store) ListDatasets(ctx context.Context, params catalog.RangeParams) ([]catalog.Dataset, error) {
	if params == (catalog.RangeParams{}) {
		return s.queryDatasets(ctx, sqlListDatasets)
	}
	sql, args, err := rangequery.Datasets(datasetColumns, "datasets", params)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindGeneric, "build range query", err)
	}
	return s.queryDatasets(ctx, sql, args...)
}

func (s *Store) SearchDatasets(ctx context.Context, term string) ([]catalog.Dataset, error) {
	return s.queryDatasets(ctx, sqlSearchDatasets, term)
}

func (s *Store) queryDatasets(ctx context.Context, sql string, args ...any) ([]catalog.Dataset, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindSql, "query datasets", err)
	}
	defer rows.Close()

	var out []catalog.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, ddserr.Wrap(ddserr.KindSql, "scan dataset", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDataset removes the dataset by name; partitions cascade via the
// foreign key declared in the migration (invariant 1, §3).
func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, sqlDeleteDataset, name)
	if err != nil {
		return ddserr.Wrap(ddserr.KindSql, "delete dataset", err)
	}
	return nil
}
