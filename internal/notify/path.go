package notify

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

// DecodePayload base64-decodes and JSON-unmarshals a message's data field.
func DecodePayload(b64Data string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(b64Data)
	if err != nil {
		return Payload{}, ddserr.Wrap(ddserr.KindGeneric, "decode base64 payload", err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ddserr.Wrap(ddserr.KindGeneric, "unmarshal payload json", err)
	}
	return p, nil
}

// DatasetName returns the first path component of an object name, which
// is always the owning dataset's name.
func DatasetName(objectName string) (string, error) {
	trimmed := strings.TrimPrefix(objectName, "/")
	if trimmed == "" {
		return "", ddserr.New(ddserr.KindInputValidation, fmt.Sprintf("bad input from pubsub, empty object path: %q", objectName))
	}
	name, _, _ := strings.Cut(trimmed, "/")
	if name == "" {
		return "", ddserr.New(ddserr.KindInputValidation, fmt.Sprintf("bad input from pubsub, path contains no components: %q", objectName))
	}
	return name, nil
}

// PartitionName returns the object name's path remainder after its
// dataset prefix, or "" if the object is the bare dataset path or the
// dataset's own dd.json descriptor (the guarded case from the dd.json
// Open Question: a descriptor write is never itself treated as a
// partition).
func PartitionName(objectName string) (string, error) {
	datasetName, err := DatasetName(objectName)
	if err != nil {
		return "", err
	}
	remainder := strings.TrimPrefix(objectName, datasetName+"/")
	if remainder == datasetName || remainder == catalog.DescriptorFilename {
		return "", nil
	}
	return remainder, nil
}
