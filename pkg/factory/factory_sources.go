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

package factory

import (
	"github.com/jeremyhahn/go-objwatch/pkg/azure"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/gcs"
	"github.com/jeremyhahn/go-objwatch/pkg/local"
	"github.com/jeremyhahn/go-objwatch/pkg/memory"
	"github.com/jeremyhahn/go-objwatch/pkg/s3"
)

func configured(source common.ObjectSource, settings map[string]string) (common.ObjectSource, error) {
	if err := source.Configure(settings); err != nil {
		return nil, err
	}
	return source, nil
}

func init() {
	RegisterSource("memory", func(settings map[string]string) (common.ObjectSource, error) {
		return configured(memory.New(), settings)
	})
	RegisterSource("local", func(settings map[string]string) (common.ObjectSource, error) {
		return configured(local.New(), settings)
	})
	RegisterSource("s3", func(settings map[string]string) (common.ObjectSource, error) {
		return configured(s3.New(), settings)
	})
	RegisterSource("gcs", func(settings map[string]string) (common.ObjectSource, error) {
		return configured(gcs.New(), settings)
	})
	RegisterSource("azure", func(settings map[string]string) (common.ObjectSource, error) {
		return configured(azure.New(), settings)
	})
}
