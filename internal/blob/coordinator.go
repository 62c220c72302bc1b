// Package blob writes a dataset's dd.json descriptor to the GCS bucket
// matching its classification, grounded on the original service's
// BucketManager (C4 of the catalog surface).
package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nilslice/datadictd/internal/catalog"
	"github.com/nilslice/datadictd/internal/ddserr"
)

// BucketNames maps each classification to the GCS bucket that stores its
// datasets' objects.
type BucketNames struct {
	Private      string
	Public       string
	Sensitive    string
	Confidential string
}

func (b BucketNames) forClassification(c catalog.Classification) (string, error) {
	switch c {
	case catalog.ClassificationPrivate:
		return b.Private, nil
	case catalog.ClassificationPublic:
		return b.Public, nil
	case catalog.ClassificationSensitive:
		return b.Sensitive, nil
	case catalog.ClassificationConfidential:
		return b.Confidential, nil
	default:
		return "", ddserr.New(ddserr.KindInputValidation, fmt.Sprintf("unknown classification %q", c))
	}
}

// Coordinator uploads a dataset's descriptor object to its classified
// bucket via a bearer-authenticated GCS JSON API media upload.
type Coordinator struct {
	serviceEndpoint string
	bearerToken     string
	buckets         BucketNames
	client          *http.Client
}

// New builds a Coordinator against a GCS-compatible JSON API endpoint
// (the emulator in development, the real API in production).
func New(serviceEndpoint, bearerToken string, buckets BucketNames) *Coordinator {
	return &Coordinator{
		serviceEndpoint: serviceEndpoint,
		bearerToken:     bearerToken,
		buckets:         buckets,
		client:          &http.Client{Timeout: 30 * time.Second},
	}
}

// RegisterDataset uploads cfg as the dataset's dd.json descriptor to the
// bucket matching its classification.
func (c *Coordinator) RegisterDataset(ctx context.Context, cfg catalog.Config) error {
	bucket, err := c.buckets.forClassification(cfg.Classification)
	if err != nil {
		return err
	}

	objectName := fmt.Sprintf("%s/%s", cfg.Name, catalog.DescriptorFilename)
	url := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s", c.serviceEndpoint, bucket, objectName)

	data, err := json.Marshal(cfg)
	if err != nil {
		return ddserr.Wrap(ddserr.KindGeneric, "marshal dataset descriptor", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return ddserr.Wrap(ddserr.KindHttp, "build descriptor upload request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ddserr.Wrap(ddserr.KindGeneric, "descriptor upload request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusForbidden:
		return ddserr.New(ddserr.KindAuth, "forbidden: invalid credentials for bucket coordinator")
	case http.StatusNotFound:
		return ddserr.New(ddserr.KindHttp, fmt.Sprintf("failed to access storage endpoint %q: %d", url, resp.StatusCode))
	default:
		return ddserr.New(ddserr.KindHttp, fmt.Sprintf("failed to access bucket, status code: %d", resp.StatusCode))
	}
}
