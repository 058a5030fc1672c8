// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package notification converts storage event payloads into notifications.
//
// Decode understands S3 event documents, optionally wrapped in an SNS
// envelope, an SQS batch, or both. Watcher produces the same notifications
// from changes under a local backend root.
package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// maxDepth bounds envelope nesting, SQS(SNS(S3)) being the deepest expected.
const maxDepth = 4

type envelope struct {
	// SNS
	Type    string `json:"Type"`
	Message string `json:"Message"`

	// S3 event document or SQS batch
	Records []json.RawMessage `json:"Records"`
}

type record struct {
	// SQS
	Body string `json:"body"`

	// S3
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size *int64 `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// Decode returns the notifications carried by body. A JSON array is read as
// a list of plain notifications. Documents without records, such as the S3
// test event, yield no notifications. Records with an unrecognised event name
// yield a notification with an empty type so that consumers skip them as
// malformed.
func Decode(body []byte) ([]common.Notification, error) {
	return decode(body, 0)
}

func decode(body []byte, depth int) ([]common.Notification, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: envelopes nested too deeply", common.ErrMalformedNotification)
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var plain []common.Notification
		if err := json.Unmarshal(body, &plain); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedNotification, err)
		}
		return plain, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedNotification, err)
	}

	if env.Type == "Notification" && env.Message != "" {
		return decode([]byte(env.Message), depth+1)
	}

	out := make([]common.Notification, 0, len(env.Records))
	for _, raw := range env.Records {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedNotification, err)
		}

		if rec.Body != "" {
			inner, err := decode([]byte(rec.Body), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
			continue
		}

		out = append(out, fromS3(rec))
	}
	return out, nil
}

func fromS3(rec record) common.Notification {
	n := common.Notification{
		Bucket: rec.S3.Bucket.Name,
		Key:    unescapeKey(rec.S3.Object.Key),
	}
	switch {
	case strings.HasPrefix(rec.EventName, "ObjectCreated"):
		n.Type = common.ObjectCreated
		n.Size = rec.S3.Object.Size
	case strings.HasPrefix(rec.EventName, "ObjectRemoved"):
		n.Type = common.ObjectRemoved
	}
	return n
}

// unescapeKey reverses the form encoding S3 applies to keys in events.
func unescapeKey(key string) string {
	unescaped, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return unescaped
}
