package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
	"github.com/nilslice/datadictd/internal/storage/rangequery"
)

const (
	sqlRegisterPartition = `
		INSERT INTO partitions (dataset_id, partition_name, partition_url, partition_size)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (dataset_id, partition_name) DO UPDATE
			SET partition_url = excluded.partition_url, partition_size = excluded.partition_size, updated_at = now()
		RETURNING partition_id, dataset_id, partition_name, partition_url, partition_size, created_at, updated_at`

	sqlDeletePartition = `DELETE FROM partitions WHERE dataset_id = $1 AND partition_name = $2`

	sqlFindPartition = `
		SELECT partition_id, dataset_id, partition_name, partition_url, partition_size, created_at, updated_at
		FROM partitions WHERE dataset_id = $1 AND partition_name = $2`

	sqlFindPartitionLatest = `
		SELECT partition_id, dataset_id, partition_name, partition_url, partition_size, created_at, updated_at
		FROM partitions WHERE dataset_id = $1 ORDER BY created_at DESC LIMIT 1`

	sqlListPartitions = `
		SELECT partition_id, dataset_id, partition_name, partition_url, partition_size, created_at, updated_at
		FROM partitions WHERE dataset_id = $1 ORDER BY created_at ASC`

	partitionColumns = "partition_id, dataset_id, partition_name, partition_url, partition_size, created_at, updated_at"
)

func scanPartition(row pgx.Row) (catalog.Partition, error) {
	var p catalog.Partition
	err := row.Scan(&p.ID, &p.DatasetID, &p.Name, &p.URL, &p.Size, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// RegisterPartition upserts keyed by (dataset_id, name), overwriting url
// and size on conflict. The literal name "latest" is rejected before any
// query runs (invariant 2, §3).
func (s *Store) RegisterPartition(ctx context.Context, datasetID int32, name, url string, size int64) (catalog.Partition, error) {
	if catalog.IsReservedPartitionName(name) {
		return catalog.Partition{}, ddserr.ErrReservedPartitionName
	}
	row := s.pool.QueryRow(ctx, sqlRegisterPartition, datasetID, name, url, size)
	p, err := scanPartition(row)
	if err != nil {
		return catalog.Partition{}, ddserr.Wrap(ddserr.KindSql, "upsert partition", err)
	}
	return p, nil
}

// DeletePartition is idempotent: deleting an absent partition is not an error.
func (s *Store) DeletePartition(ctx context.Context, datasetID int32, name string) error {
	_, err := s.pool.Exec(ctx, sqlDeletePartition, datasetID, name)
	if err != nil {
		return ddserr.Wrap(ddserr.KindSql, "delete partition", err)
	}
	return nil
}

// FindPartition resolves the reserved name "latest" to the
// most-recently-created partition instead of an exact-name match.
func (s *Store) FindPartition(ctx context.Context, datasetID int32, name string) (catalog.Partition, error) {
	var row pgx.Row
	if catalog.IsReservedPartitionName(name) {
		row = s.pool.QueryRow(ctx, sqlFindPartitionLatest, datasetID)
	} else {
		row = s.pool.QueryRow(ctx, sqlFindPartition, datasetID, name)
	}
	p, err := scanPartition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Partition{}, ddserr.Wrap(ddserr.KindSql, "partition not found", err)
		}
		return catalog.Partition{}, ddserr.Wrap(ddserr.KindSql, "find partition", err)
	}
	return p, nil
}

func (s *Store) ListPartitions(ctx context.Context, datasetID int32) ([]catalog.Partition, error) {
	return s.queryPartitions(ctx, sqlListPartitions, datasetID)
}

// RangePartitions applies params' optional bounds via the range-query builder.
func (s *Store) RangePartitions(ctx context.Context, datasetID int32, params catalog.RangeParams) ([]catalog.Partition, error) {
	if params == (catalog.RangeParams{}) {
		return s.ListPartitions(ctx, datasetID)
	}
	sql, args, err := rangequery.Partitions(partitionColumns, "partitions", datasetID, params)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindGeneric, "build range query", err)
	}
	return s.queryPartitions(ctx, sql, args...)
}

func (s *Store) queryPartitions(ctx context.Context, sql string, args ...any) ([]catalog.Partition, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, ddserr.Wrap(ddserr.KindSql, "query partitions", err)
	}
	defer rows.Close()

	var out []catalog.Partition
	for rows.Next() {
		p, err := scanPartition(rows)
		if err != nil {
			return nil, ddserr.Wrap(ddserr.KindSql, "scan partition", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
