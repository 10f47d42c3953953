// Copyright 2026 The Drift Authors
// This file is part of the drift library.
//
// The drift library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The drift library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the drift library. If not, see <http://www.gnu.org/licenses/>.

package store

import "errors"

// Storage error kinds.
var (
	ErrHeightMismatch   = errors.New("store: block height does not follow current height")
	ErrPrevHashMismatch = errors.New("store: block previousHash does not match current head")
	ErrSignatureInvalid = errors.New("store: block signature invalid")
	ErrDuplicateBlock   = errors.New("store: block already committed")
	ErrCorruptedLog     = errors.New("store: blocks log is corrupted")
	ErrTxInvalid        = errors.New("store: transaction invalid")
	ErrNotFound         = errors.New("store: not found")
)
