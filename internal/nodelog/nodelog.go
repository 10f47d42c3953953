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

// Package nodelog sets up the process-wide root logger. Every subsystem
// derives a module-scoped child from Root via New, following the
// log.Root().New("module", ...) convention.
package nodelog

import (
	"os"

	"github.com/inconshreveable/log15"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

var root = log15.Root()

// Init configures the root logger's level and output handler. When stdout
// is a terminal it uses a colorized terminal format; otherwise plain text,
// suitable for log aggregation.
func Init(levelName string) error {
	lvl, err := log15.LvlFromString(levelName)
	if err != nil {
		return err
	}
	var handler log15.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = log15.StreamHandler(colorable.NewColorableStdout(), log15.TerminalFormat())
	} else {
		handler = log15.StreamHandler(os.Stdout, log15.LogfmtFormat())
	}
	root.SetHandler(log15.LvlFilterHandler(lvl, handler))
	return nil
}

// New returns a child logger scoped to module, e.g. New("consensus").
func New(module string) log15.Logger {
	return root.New("module", module)
}

// Root returns the process root logger, for callers that need to add their
// own context pairs.
func Root() log15.Logger { return root }
