// Copyright 2025 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// authtool is the operator tool for inspecting an authority store.
package main

import (
	"fmt"
	"os"

	"github.com/sunyihoo/authstore/core/authority"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/internal/debug"
	"github.com/sunyihoo/authstore/internal/flags"
	"github.com/urfave/cli/v2"
)

var (
	dataDirFlag = &flags.DirectoryFlag{
		Name:     "datadir",
		Usage:    "Data directory of the authority store",
		Value:    flags.DirectoryString(flags.DefaultDataDir()),
		Category: flags.DatabaseCategory,
	}
	dbEngineFlag = &cli.StringFlag{
		Name:     "db.engine",
		Usage:    "Backing database implementation to use ('pebble' or 'leveldb')",
		Value:    authority.DefaultConfig.DBEngine,
		Category: flags.DatabaseCategory,
	}
	cacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to database caching",
		Value:    authority.DefaultConfig.DatabaseCache,
		Category: flags.PerfCategory,
	}
	handlesFlag = &cli.IntFlag{
		Name:     "handles",
		Usage:    "Number of open file handles allowed per database",
		Value:    authority.DefaultConfig.DatabaseHandles,
		Category: flags.PerfCategory,
	}
)

var app = flags.NewApp("the authority store operator tool")

func init() {
	app.Flags = append([]cli.Flag{configFileFlag, dataDirFlag, dbEngineFlag, cacheFlag, handlesFlag}, debug.Flags...)
	app.Commands = []*cli.Command{
		dbCommand,
		dumpConfigCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		return debug.Setup(ctx)
	}
	app.After = func(ctx *cli.Context) error {
		debug.Exit()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// validEngine rejects engines the tool cannot open.
func validEngine(engine string) error {
	switch engine {
	case rawdb.DBPebble, rawdb.DBLeveldb:
		return nil
	case rawdb.DBMemory:
		return fmt.Errorf("--%s=%s keeps no data to inspect", dbEngineFlag.Name, engine)
	}
	return fmt.Errorf("invalid --%s: %q", dbEngineFlag.Name, engine)
}
