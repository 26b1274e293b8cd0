// Package worker registers faces for uploaded photos in response to
// blob-created notifications.
package worker

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/kozaktomas/photo-search/internal/storage"
)

// testEvent is sent by S3 when a notification configuration is created.
const testEvent = "s3:TestEvent"

// S3Event is the S3 event notification document.
type S3Event struct {
	Event   string          `json:"Event,omitempty"`
	Records []S3EventRecord `json:"Records"`
}

// S3EventRecord is one object event.
type S3EventRecord struct {
	EventSource string `json:"eventSource"`
	EventName   string `json:"eventName"`
	S3          struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size int64  `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// snsEnvelope wraps S3 events delivered through an SNS topic.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// ParseS3Event returns the locations of objects created according to body.
// Test events and other event types yield no locations.
func ParseS3Event(body string) ([]storage.Location, error) {
	var env snsEnvelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Type == "Notification" && env.Message != "" {
		body = env.Message
	}

	var evt S3Event
	if err := json.Unmarshal([]byte(body), &evt); err != nil {
		return nil, fmt.Errorf("decode s3 event: %w", err)
	}
	if evt.Event == testEvent {
		return nil, nil
	}

	var locs []storage.Location
	for _, rec := range evt.Records {
		if !strings.HasPrefix(rec.EventName, "ObjectCreated:") {
			continue
		}
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("decode object key %q: %w", rec.S3.Object.Key, err)
		}
		if rec.S3.Bucket.Name == "" || key == "" {
			continue
		}
		locs = append(locs, storage.Location{Bucket: rec.S3.Bucket.Name, Key: key})
	}
	return locs, nil
}
