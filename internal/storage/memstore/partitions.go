package memstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

const partitionSelectColumns = `partition_id, dataset_id, partition_name, partition_url, partition_size, created_at, updated_at`

func scanPartitionRow(row *sql.Row) (catalog.Partition, error) {
	var p catalog.Partition
	err := row.Scan(&p.ID, &p.DatasetID, &p.Name, &p.URL, &p.Size, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanPartitionRows(rows *sql.Rows) ([]catalog.Partition, error) {
	var out []catalog.Partition
	for rows.Next() {
		var p catalog.Partition
		if err := rows.Scan(&p.ID, &p.DatasetID, &p.Name, &p.URL, &p.Size, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, ddserr.Wrap(ddserr.KindSql, "scan partition", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) RegisterPartition(ctx context.Context, datasetID int32, name, url string, size int64) (catalog.Partition, error) {
	if catalog.IsReservedPartitionName(name) {
		return catalog.Partition{}, ddserr.ErrReservedPartitionName
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO partitions (dataset_id, partition_name, partition_url, partition_size)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (dataset_id, partition_name) DO UPDATE
			SET partition_url = excluded.partition_url, partition_size = excluded.partition_size, updated_at = CURRENT_TIMESTAMP
		RETURNING `+partitionSelectColumns,
		datasetID, name, url, size)

	p, err := scanPartitionRow(row)
	if err != nil {
		return catalog.Partition{}, ddserr.Wrap(ddserr.KindSql, "upsert partition", err)
	}
	return p, nil
}

func (s *Store) DeletePartition(ctx context.Context, datasetID int32, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM partitions WHERE dataset_id = ? AND partition_name = ?`, datasetID, name)
	if err != nil {
		return ddserr.Wrap(ddserr.KindSql, "delete partition", err)
	}
	return nil
}

func (s *Store) FindPartition(ctx context.Context, datasetID int32, name string) (catalog.Partition, error) {
	var row *sql.Row
	if catalog.IsReservedPartitionName(name) {
		row = s.db.QueryRowContext(ctx, `SELECT `+partitionSelectColumns+` FROM partitions WHERE dataset_id = ? ORDER BY created_at DESC LIMIT 1`, datasetID)
	} else {
		row = s.db.QueryRowContext(ctx, `SELECT `+partitionSelectColumns+` FROM partitions WHERE dataset_id = ? AND partition_name = ?`, datasetID, name)
	}

	p, err := scanPartitionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Partition{}, ddserr.Wrap(ddserr.KindSql, "partition not found", err)
		}
		return catalog.Partition{}, ddserr.Wrap(ddserr.KindSql, "find partition", err)
	}
	return p, nil
}

func (s *Store) ListPartitions(ctx context.Context, datasetID int32) ([]catalog.Partition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+partitionSelectColumns+` FROM partitions WHERE dataset_id = ? ORDER BY created_at ASC`, datasetID)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindSql, "query partitions", err)
	}
	defer rows.Close()
	return scanPartitionRows(rows)
}

// RangePartitions mirrors ListDatasets' inline bound handling; see the
// comment there for why this does not share the Postgres rangequery builder.
func (s *Store) RangePartitions(ctx context.Context, datasetID int32, params catalog.RangeParams) ([]catalog.Partition, error) {
	query := `SELECT ` + partitionSelectColumns + ` FROM partitions WHERE dataset_id = ?`
	args := []any{datasetID}

	if params.Start != nil {
		query += " AND created_at >= ?"
		args = append(args, *params.Start)
	}
	if params.End != nil {
		query += " AND created_at <= ?"
		args = append(args, *params.End)
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
		return nil, ddserr.Wrap(ddserr.KindSql, "query partitions", err)
	}
	defer rows.Close()
	return scanPartitionRows(rows)
}
