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

package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// DefaultKey is the object key a published report is written to.
const DefaultKey = "size-history.json"

// Renderer turns a report into an artifact.
type Renderer interface {
	Render(w io.Writer, r *Report) error
	ContentType() string
}

// JSONRenderer writes the report as indented JSON.
type JSONRenderer struct{}

// Render implements Renderer.
func (JSONRenderer) Render(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ContentType implements Renderer.
func (JSONRenderer) ContentType() string { return "application/json" }

// Publisher renders reports and stores them back into their bucket.
type Publisher struct {
	source   common.ObjectSource
	renderer Renderer
	key      string
}

// NewPublisher creates a publisher. An empty key uses DefaultKey and a nil
// renderer uses JSONRenderer.
func NewPublisher(source common.ObjectSource, renderer Renderer, key string) *Publisher {
	if renderer == nil {
		renderer = JSONRenderer{}
	}
	if key == "" {
		key = DefaultKey
	}
	return &Publisher{source: source, renderer: renderer, key: key}
}

// Key returns the object key reports are written to.
func (p *Publisher) Key() string {
	return p.key
}

// Publish renders r and puts it at the publisher's key in r.Bucket.
func (p *Publisher) Publish(ctx context.Context, r *Report) error {
	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, r); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := p.source.Put(ctx, r.Bucket, p.key, &buf); err != nil {
		return common.NewSourceError("put", r.Bucket, p.key, err)
	}
	return nil
}
