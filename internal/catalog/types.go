// Package catalog defines the core entities of the dataset catalog —
// managers, datasets, and partitions — and the enumerated attributes a
// dataset carries. The persistence and query surface over these types
// lives in internal/storage.
package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PartitionLatest is the reserved partition name that resolves to the
// most-recently-created partition of a dataset instead of an exact match.
const PartitionLatest = "latest"

// DescriptorFilename is the well-known object name that carries a
// dataset's configuration and is never treated as a partition.
const DescriptorFilename = "dd.json"

// Classification selects which bucket a dataset's objects live in.
type Classification string

const (
	ClassificationPublic       Classification = "public"
	ClassificationPrivate      Classification = "private"
	ClassificationSensitive    Classification = "sensitive"
	ClassificationConfidential Classification = "confidential"
)

func (c Classification) Valid() bool {
	switch c {
	case ClassificationPublic, ClassificationPrivate, ClassificationSensitive, ClassificationConfidential:
		return true
	}
	return false
}

// Compression names the storage-level compression applied to a dataset's objects.
type Compression string

const (
	CompressionUncompressed Compression = "uncompressed"
	CompressionZip          Compression = "zip"
	CompressionTar          Compression = "tar"
)

func (c Compression) Valid() bool {
	switch c {
	case CompressionUncompressed, CompressionZip, CompressionTar:
		return true
	}
	return false
}

// Format names the record encoding of a dataset's objects.
type Format string

const (
	FormatPlainText Format = "plaintext"
	FormatJSON      Format = "json"
	FormatNDJSON    Format = "ndjson"
	FormatCSV       Format = "csv"
	FormatTSV       Format = "tsv"
	FormatProtobuf  Format = "protobuf"
)

func (f Format) Valid() bool {
	switch f {
	case FormatPlainText, FormatJSON, FormatNDJSON, FormatCSV, FormatTSV, FormatProtobuf:
		return true
	}
	return false
}

// Schema maps a dataset's column names to an optional type name.
type Schema map[string]*string

// Manager is a human or service principal that owns datasets, identified
// externally by an opaque UUID api key presented as a bearer token.
type Manager struct {
	ID        int32     `json:"id"`
	Email     string    `json:"email"`
	APIKey    uuid.UUID `json:"api_key"`
	Admin     bool      `json:"admin"`
	Salt      string    `json:"-"`
	Hash      []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Restricted returns the view of a Manager that is safe to return from
// the registration endpoint: id, email, and api_key only, never the
// salt or password hash.
func (m Manager) Restricted() RestrictedManager {
	return RestrictedManager{ID: m.ID, Email: m.Email, APIKey: m.APIKey}
}

// RestrictedManager is the public projection of a Manager.
type RestrictedManager struct {
	ID     int32     `json:"id"`
	Email  string    `json:"email"`
	APIKey uuid.UUID `json:"api_key"`
}

// Dataset is a named logical collection of data in the blob store, owned
// by exactly one manager.
type Dataset struct {
	ID             int32          `json:"id"`
	ManagerID      int32          `json:"manager_id"`
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	Compression    Compression    `json:"compression"`
	Format         Format         `json:"format"`
	Description    string         `json:"description"`
	Schema         Schema         `json:"schema"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Config is the shape persisted to the dataset's dd.json descriptor
// object, and the shape a manager submits to register a dataset.
type Config struct {
	Name           string         `json:"name"`
	Classification Classification `json:"classification"`
	Compression    Compression    `json:"compression"`
	Format         Format         `json:"format"`
	Description    string         `json:"description"`
	Schema         Schema         `json:"schema"`
}

// Validate checks the enumerated fields and name shape of a dataset
// config before it reaches the blob coordinator or the catalog store.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("dataset name must not be empty")
	}
	if !c.Classification.Valid() {
		return fmt.Errorf("invalid classification %q", c.Classification)
	}
	if !c.Compression.Valid() {
		return fmt.Errorf("invalid compression %q", c.Compression)
	}
	if !c.Format.Valid() {
		return fmt.Errorf("invalid format %q", c.Format)
	}
	return nil
}

// Partition is one addressable object under a dataset's prefix in the
// blob store, mirrored as a catalog row.
type Partition struct {
	ID        int32     `json:"partition_id"`
	DatasetID int32     `json:"dataset_id"`
	Name      string    `json:"partition_name"`
	URL       string    `json:"partition_url"`
	Size      int64     `json:"partition_size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsReservedPartitionName reports whether name is the reserved "latest" alias.
func IsReservedPartitionName(name string) bool {
	return name == PartitionLatest
}

// RangeParams bounds a range query over partitions or datasets ordered
// ascending by created_at. Every field is optional; nil/zero means
// unbounded.
type RangeParams struct {
	Start  *time.Time
	End    *time.Time
	Count  *int32
	Offset *int32
}
