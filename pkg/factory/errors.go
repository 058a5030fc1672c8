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

import "errors"

var (
	// ErrUnknownSource is returned when an unknown object source type is specified.
	ErrUnknownSource = errors.New("unknown source type")

	// ErrUnknownStore is returned when an unknown record store type is specified.
	ErrUnknownStore = errors.New("unknown record store type")
)
