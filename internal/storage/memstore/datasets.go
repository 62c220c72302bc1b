package memstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

const datasetSelectColumns = `dataset_id, manager_id, dataset_name, dataset_classification,
	dataset_compression, dataset_format, dataset_desc, dataset_schema, created_at, updated_at`

func scanDatasetRow(row *sql.Row) (catalog.Dataset, error) {
	var d catalog.Dataset
	var schemaJSON string
	err := row.Scan(&d.ID, &d.ManagerID, &d.Name, &d.Classification, &d.Compression, &d.Format, &d.Description, &schemaJSON, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return catalog.Dataset{}, err
	}
	if err := json.Unmarshal([]byte(schemaJSON), &d.Schema); err != nil {
		return catalog.Dataset{}, err
	}
	return d, nil
}

func scanDatasets(rows *sql.Rows) ([]catalog.Dataset, error) {
	var out []catalog.Dataset
	for rows.Next() {
		var d catalog.Dataset
		var schemaJSON string
		if err := rows.Scan(&d.ID, &d.ManagerID, &d.Name, &d.Classification, &d.Compression, &d.Format, &d.Description, &schemaJSON, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, ddserr.Wrap(ddserr.KindSql, "scan dataset", err)
		}
		if err := json.Unmarshal([]byte(schemaJSON), &d.Schema); err != nil {
			return nil, ddserr.Wrap(ddserr.KindSql, "decode dataset schema", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *Store) RegisterDataset(ctx context.Context, managerID int32, cfg catalog.Config) (catalog.Dataset, error) {
	schemaJSON, err := json.Marshal(cfg.Schema)
	if err != nil {
		return catalog.Dataset{}, ddserr.Wrap(ddserr.KindInputValidation, "marshal schema", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO datasets (manager_id, dataset_name, dataset_classification, dataset_compression, dataset_format, dataset_desc, dataset_schema)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+datasetSelectColumns,
		managerID, cfg.Name, string(cfg.Classification), string(cfg.Compression), string(cfg.Format), cfg.Description, string(schemaJSON))

	d, err := scanDatasetRow(row)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "dataset already exists", err)
		}
		return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "insert dataset", err)
	}
	return d, nil
}

func (s *Store) FindDataset(ctx context.Context, name string) (catalog.Dataset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+datasetSelectColumns+` FROM datasets WHERE dataset_name = ?`, name)
	d, err := scanDatasetRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "dataset not found", err)
		}
		return catalog.Dataset{}, ddserr.Wrap(ddserr.KindSql, "find dataset", err)
	}
	return d, nil
}

// ListDatasets applies params' optional bounds directly, mirroring the
// semantics of the Postgres store's rangequery.Datasets form without
// reusing its Postgres-placeholder rewriting (SQLite's driver takes
// positional "?" placeholders, so there is nothing to shift).
func (s *Store) ListDatasets(ctx context.Context, params catalog.RangeParams) ([]catalog.Dataset, error) {
	query := `SELECT ` + datasetSelectColumns + ` FROM datasets`
	var conds []string
	var args []any

	if params.Start != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *params.Start)
	}
	if params.End != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *params.End)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC"
	if params.Count != nil {
		query += " LIMIT ?"
		args = append(args, *params.Count)
	}
	if params.Offset != nil {
		if params.Count == nil {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, *params.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindSql, "query datasets", err)
	}
	defer rows.Close()
	return scanDatasets(rows)
}

func (s *Store) SearchDatasets(ctx context.Context, term string) ([]catalog.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+datasetSelectColumns+` FROM datasets WHERE dataset_name LIKE '%' || ? || '%' ORDER BY created_at ASC`, term)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindSql, "search datasets", err)
	}
	defer rows.Close()
	return scanDatasets(rows)
}

func (s *Store) DeleteDataset(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM datasets WHERE dataset_name = ?`, name)
	if err != nil {
		return ddserr.Wrap(ddserr.KindSql, "delete dataset", err)
	}
	return nil
}
