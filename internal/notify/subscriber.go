package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nilslice/datadictd/internal/ddserr"
)

// Subscriber talks to a Pub/Sub-compatible REST service (the emulator in
// development, the real service in production) to create a pull
// subscription and drain it. It mirrors the original service's thin
// wrapper over the Pub/Sub REST surface rather than pulling in the full
// Cloud Pub/Sub client library, since only pull/ack/subscription-create
// are ever used.
type Subscriber struct {
	projectID        string
	topic            string
	subscriptionName string
	serviceEndpoint  string
	maxMessages      int

	client *http.Client
}

// NewSubscriber builds a Subscriber from already-resolved configuration.
func NewSubscriber(projectID, topic, subscriptionName, serviceEndpoint string, maxMessages int) *Subscriber {
	return &Subscriber{
		projectID:        projectID,
		topic:            topic,
		subscriptionName: subscriptionName,
		serviceEndpoint:  serviceEndpoint,
		maxMessages:      maxMessages,
		client:           &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Subscriber) topicPath() string {
	return fmt.Sprintf("projects/%s/topics/%s", s.projectID, s.topic)
}

func (s *Subscriber) subscriptionPath() string {
	return fmt.Sprintf("projects/%s/subscriptions/%s", s.projectID, s.subscriptionName)
}

// Subscribe creates the pull subscription if it does not already exist.
// A CONFLICT response means the subscription was already created by a
// prior run or another replica, which is the expected steady state, not
// a failure (§6: "idempotent subscription creation").
func (s *Subscriber) Subscribe(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/%s", s.serviceEndpoint, s.subscriptionPath())
	body, err := json.Marshal(map[string]string{"topic": s.topicPath()})
	if err != nil {
		return ddserr.Wrap(ddserr.KindGeneric, "marshal subscription create payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return ddserr.Wrap(ddserr.KindHttp, "build subscription create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return ddserr.Wrap(ddserr.KindHttp, "subscription create request failed", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusConflict:
		return nil
	case http.StatusNotFound:
		return ddserr.New(ddserr.KindHttp, fmt.Sprintf("pubsub subscription failed, topic %q does not exist", s.topic))
	default:
		return ddserr.New(ddserr.KindHttp, fmt.Sprintf("pubsub subscription failed, status %d", resp.StatusCode))
	}
}

// Pull fetches up to maxMessages pending messages via the "pull" method.
func (s *Subscriber) Pull(ctx context.Context) (PullResponse, error) {
	url := fmt.Sprintf("%s/v1/%s:pull", s.serviceEndpoint, s.subscriptionPath())
	body, err := json.Marshal(map[string]int{"maxMessages": s.maxMessages})
	if err != nil {
		return PullResponse{}, ddserr.Wrap(ddserr.KindGeneric, "marshal pull request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return PullResponse{}, ddserr.Wrap(ddserr.KindHttp, "build pull request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return PullResponse{}, ddserr.Wrap(ddserr.KindHttp, "pull request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PullResponse{}, ddserr.New(ddserr.KindHttp, fmt.Sprintf("subscription pull response error code: %d", resp.StatusCode))
	}

	var out PullResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PullResponse{}, ddserr.Wrap(ddserr.KindGeneric, "decode pull response", err)
	}
	return out, nil
}

// Ack acknowledges a single message by its ack id.
func (s *Subscriber) Ack(ctx context.Context, ackID string) error {
	url := fmt.Sprintf("%s/v1/%s:acknowledge", s.serviceEndpoint, s.subscriptionPath())
	body, err := json.Marshal(map[string][]string{"ackIds": {ackID}})
	if err != nil {
		return ddserr.Wrap(ddserr.KindGeneric, "marshal ack request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return ddserr.Wrap(ddserr.KindHttp, "build ack request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return ddserr.Wrap(ddserr.KindHttp, "ack request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ddserr.New(ddserr.KindHttp, fmt.Sprintf("ack request error code: %d", resp.StatusCode))
	}
	return nil
}
