// Package notify decodes GCS object-change notifications delivered over
// Cloud Pub/Sub and resolves the object path they describe into a
// dataset name and, where applicable, a partition name. The ingest loop
// (internal/ingest) pulls messages and hands their payload to this
// package before dispatching to the catalog store.
package notify

import "time"

// Event is the GCS object-change notification kind carried in a
// message's pubsub attributes.
type Event string

const (
	EventObjectFinalize      Event = "OBJECT_FINALIZE"
	EventObjectMetadataUpdate Event = "OBJECT_METADATA_UPDATE"
	EventObjectDelete        Event = "OBJECT_DELETE"
	EventObjectArchive       Event = "OBJECT_ARCHIVE"
)

// PayloadFormat names the encoding of a message's data field.
type PayloadFormat string

const (
	PayloadFormatJSONAPIV1 PayloadFormat = "JSON_API_V1"
	PayloadFormatNone      PayloadFormat = "NONE"
)

// Attributes carries the notification metadata GCS attaches to every
// pubsub message about an object change.
type Attributes struct {
	NotificationConfig      string        `json:"notificationConfig"`
	EventType               Event         `json:"eventType"`
	EventTime               time.Time     `json:"eventTime"`
	PayloadFormat           PayloadFormat `json:"payloadFormat"`
	BucketID                string        `json:"bucketId"`
	ObjectID                string        `json:"objectId"`
	ObjectGeneration        string        `json:"objectGeneration"`
	OverwrittenByGeneration string        `json:"overwrittenByGeneration"`
	OverwroteGeneration     string        `json:"overwroteGeneration"`
}

// Payload is the GCS object resource embedded in a notification's data
// field, trimmed to a subset of its fields. The ingest loop reads only
// Name, SelfLink and Size.
type Payload struct {
	Name        string    `json:"name"`
	Bucket      string    `json:"bucket"`
	SelfLink    string    `json:"selfLink"`
	Generation  string    `json:"generation"`
	Size        string    `json:"size"`
	TimeCreated time.Time `json:"timeCreated"`
	Updated     time.Time `json:"updated"`
}

// PubsubMessage is one message in a pull response, as delivered by the
// Pub/Sub REST API.
type PubsubMessage struct {
	Data        string     `json:"data"`
	Attributes  Attributes `json:"attributes"`
	MessageID   string     `json:"messageId"`
	PublishTime time.Time  `json:"publishTime"`
}

// ReceivedMessage pairs a message with the ack id needed to acknowledge it.
type ReceivedMessage struct {
	AckID   string        `json:"ackId"`
	Message PubsubMessage `json:"message"`
}

// PullResponse is the body of a subscription pull response.
type PullResponse struct {
	ReceivedMessages []ReceivedMessage `json:"receivedMessages"`
}
