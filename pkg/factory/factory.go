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

// Package factory builds object sources and record stores by type name.
package factory

import (
	"sort"

	"github.com/jeremyhahn/go-objwatch/pkg/adapters"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
)

// SourceCreator is a function that creates an object source.
type SourceCreator func(settings map[string]string) (common.ObjectSource, error)

// StoreCreator is a function that creates a record store.
type StoreCreator func(settings map[string]string) (common.RecordStore, error)

var (
	sourceRegistry = make(map[string]SourceCreator)
	storeRegistry  = make(map[string]StoreCreator)
)

// RegisterSource registers an object source creator.
func RegisterSource(sourceType string, creator SourceCreator) {
	sourceRegistry[sourceType] = creator
}

// RegisterStore registers a record store creator.
func RegisterStore(storeType string, creator StoreCreator) {
	storeRegistry[storeType] = creator
}

// NewSource creates a new object source based on the given type.
func NewSource(sourceType string, settings map[string]string) (common.ObjectSource, error) {
	creator, exists := sourceRegistry[sourceType]
	if !exists {
		return nil, ErrUnknownSource
	}
	return creator(settings)
}

// NewSourceWithLogger creates an object source and hands it logger when the
// source logs its own mutations.
func NewSourceWithLogger(sourceType string, settings map[string]string, logger adapters.Logger) (common.ObjectSource, error) {
	source, err := NewSource(sourceType, settings)
	if err != nil {
		return nil, err
	}
	if l, ok := source.(interface{ SetLogger(adapters.Logger) }); ok && logger != nil {
		l.SetLogger(logger)
	}
	return source, nil
}

// NewStore creates a new record store based on the given type.
func NewStore(storeType string, settings map[string]string) (common.RecordStore, error) {
	creator, exists := storeRegistry[storeType]
	if !exists {
		return nil, ErrUnknownStore
	}
	return creator(settings)
}

// SourceTypes returns the registered object source types, sorted.
func SourceTypes() []string {
	return sortedKeys(sourceRegistry)
}

// StoreTypes returns the registered record store types, sorted.
func StoreTypes() []string {
	return sortedKeys(storeRegistry)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
