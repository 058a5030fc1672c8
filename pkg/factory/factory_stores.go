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
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/recordstore/badger"
	recordmemory "github.com/jeremyhahn/go-objwatch/pkg/recordstore/memory"
	"github.com/jeremyhahn/go-objwatch/pkg/recordstore/sqlite"
)

func init() {
	RegisterStore("memory", func(settings map[string]string) (common.RecordStore, error) {
		return recordmemory.New(), nil
	})
	RegisterStore("badger", func(settings map[string]string) (common.RecordStore, error) {
		store, err := badger.Open(badger.Config{
			Path:     settings["path"],
			InMemory: settings["inMemory"] == "true",
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	})
	RegisterStore("sqlite", func(settings map[string]string) (common.RecordStore, error) {
		store, err := sqlite.Open(settings["path"])
		if err != nil {
			return nil, err
		}
		return store, nil
	})
}
