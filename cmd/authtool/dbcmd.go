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

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/sunyihoo/authstore/common"
	"github.com/sunyihoo/authstore/core/authority"
	"github.com/sunyihoo/authstore/core/rawdb"
	"github.com/sunyihoo/authstore/core/types"
	"github.com/sunyihoo/authstore/internal/flags"
	"github.com/urfave/cli/v2"
)

var (
	epochFlag = &cli.Uint64Flag{
		Name:     "epoch",
		Usage:    "Epoch database to open (default = newest)",
		Category: flags.DatabaseCategory,
	}
	storeFlag = &cli.StringFlag{
		Name:     "store",
		Usage:    "Namespace to operate on ('perpetual' or 'epoch'), all if empty",
		Category: flags.DatabaseCategory,
	}
	tableFlag = &cli.StringFlag{
		Name:     "table",
		Usage:    "Table to dump, optionally qualified as <store>/<table>",
		Required: true,
		Category: flags.DumpCategory,
	}
	pageSizeFlag = &cli.Uint64Flag{
		Name:     "page-size",
		Usage:    "Number of rows per page",
		Value:    100,
		Category: flags.DumpCategory,
	}
	pageFlag = &cli.Uint64Flag{
		Name:     "page",
		Usage:    "Zero based page number",
		Category: flags.DumpCategory,
	}
	objectFlag = &cli.StringFlag{
		Name:     "object",
		Usage:    "Hex id of the object to show",
		Category: flags.DumpCategory,
	}
	versionFlag = &cli.Uint64Flag{
		Name:     "object.version",
		Usage:    "Object version to show (default = latest)",
		Category: flags.DumpCategory,
	}
	txFlag = &cli.StringFlag{
		Name:     "tx",
		Usage:    "Hex digest of the transaction whose certificate and effects to show",
		Category: flags.DumpCategory,
	}

	dbCommand = &cli.Command{
		Name:  "db",
		Usage: "Low level database operations",
		Subcommands: []*cli.Command{
			dbListTablesCmd,
			dbDumpCmd,
			dbGetCmd,
			dbInspectCmd,
			dbStatCmd,
			dbMetadataCmd,
			dbConsensusIndexCmd,
		},
	}
	dbListTablesCmd = &cli.Command{
		Action: listTables,
		Name:   "list-tables",
		Usage:  "List every table of both stores",
		Flags:  []cli.Flag{epochFlag},
	}
	dbDumpCmd = &cli.Command{
		Action: dumpTable,
		Name:   "dump",
		Usage:  "Print one page of a table in storage order",
		Flags:  []cli.Flag{epochFlag, tableFlag, pageSizeFlag, pageFlag},
		Description: `Rows are printed as "key = value", decoded according to the table
registry. Values that fail to decode are printed as hex with the decoding error.`,
	}
	dbGetCmd = &cli.Command{
		Action: dbGet,
		Name:   "get",
		Usage:  "Show one object version, or the certificate and effects of one transaction",
		Flags:  []cli.Flag{objectFlag, versionFlag, txFlag},
	}
	dbInspectCmd = &cli.Command{
		Action: inspect,
		Name:   "inspect",
		Usage:  "Inspect the storage size for each table",
		Flags:  []cli.Flag{epochFlag, storeFlag},
	}
	dbStatCmd = &cli.Command{
		Action: dbStats,
		Name:   "stats",
		Usage:  "Print leveldb or pebble statistics",
		Flags:  []cli.Flag{epochFlag, storeFlag},
	}
	dbMetadataCmd = &cli.Command{
		Action: showMetaData,
		Name:   "metadata",
		Usage:  "Show store version, executed sequence and consensus progress",
		Flags:  []cli.Flag{epochFlag},
	}
	dbConsensusIndexCmd = &cli.Command{
		Action: showConsensusIndex,
		Name:   "consensus-index",
		Usage:  "Show the consensus resume point of an epoch",
		Flags:  []cli.Flag{epochFlag},
	}
)

// openStore opens the configured data directory read-only.
func openStore(ctx *cli.Context) (*authority.ReadOnlyStore, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := validEngine(cfg.Store.DBEngine); err != nil {
		return nil, err
	}
	var epoch *uint64
	if ctx.IsSet(epochFlag.Name) {
		n := ctx.Uint64(epochFlag.Name)
		epoch = &n
	}
	log.Debug("Opening authority store", "datadir", cfg.Store.DataDir, "engine", cfg.Store.DBEngine)
	return authority.OpenReadOnly(&cfg.Store, epoch)
}

// namespaces returns the namespaces selected by --store.
func namespaces(ctx *cli.Context) ([]rawdb.Namespace, error) {
	switch store := ctx.String(storeFlag.Name); store {
	case "":
		return []rawdb.Namespace{rawdb.PerpetualNamespace, rawdb.EpochNamespace}, nil
	case string(rawdb.PerpetualNamespace), string(rawdb.EpochNamespace):
		return []rawdb.Namespace{rawdb.Namespace(store)}, nil
	default:
		return nil, fmt.Errorf("invalid --%s: %q", storeFlag.Name, store)
	}
}

func listTables(ctx *cli.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	describe := make(map[string]string)
	for _, reg := range []*rawdb.Registry{rawdb.PerpetualTables, rawdb.EpochTables} {
		for _, spec := range reg.Tables() {
			describe[spec.Name] = spec.Description
		}
	}
	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Store", "Table", "Description"})
	table.SetAutoWrapText(false)
	for _, name := range store.ListTables() {
		table.Append([]string{string(name.Store), name.Name, describe[name.Name]})
	}
	table.Render()
	return nil
}

func dumpTable(ctx *cli.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	page, err := store.Dump(ctx.String(tableFlag.Name), ctx.Uint64(pageSizeFlag.Name), ctx.Uint64(pageFlag.Name))
	if err != nil {
		return err
	}
	printPage(ctx.App.Writer, page)
	return nil
}

func printPage(w io.Writer, page *rawdb.DumpPage) {
	fmt.Fprintf(w, "# %s/%s page %d (size %d, %d rows)\n", page.Store, page.Table, page.PageNumber, page.PageSize, len(page.Entries))
	for _, entry := range page.Entries {
		fmt.Fprintf(w, "%s = %s\n", entry.Key, entry.Value)
	}
}

func dbGet(ctx *cli.Context) error {
	if err := flags.CheckExclusive(ctx, objectFlag, txFlag); err != nil {
		return err
	}
	if !ctx.IsSet(objectFlag.Name) && !ctx.IsSet(txFlag.Name) {
		return fmt.Errorf("one of --%s or --%s is required", objectFlag.Name, txFlag.Name)
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if ctx.IsSet(objectFlag.Name) {
		return showObject(ctx, store.Perpetual())
	}
	return showTransaction(ctx, store.Perpetual())
}

func showObject(ctx *cli.Context, db *authority.PerpetualStore) error {
	id, err := common.HexToAddress(ctx.String(objectFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", objectFlag.Name, err)
	}
	var obj *types.Object
	if ctx.IsSet(versionFlag.Name) {
		obj, err = db.GetObject(types.ObjectKey{ID: id, Version: types.Version(ctx.Uint64(versionFlag.Name))})
	} else {
		obj, err = db.GetLatestObject(id)
	}
	if errors.Is(err, authority.ErrObjectNotFound) || (err == nil && obj == nil) {
		return fmt.Errorf("object %s not found", id.Hex())
	}
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "object   = %s\n", obj.Key())
	fmt.Fprintf(w, "digest   = %s\n", obj.Digest().Hex())
	fmt.Fprintf(w, "owner    = %s\n", obj.Owner)
	fmt.Fprintf(w, "type     = %s\n", obj.Type)
	fmt.Fprintf(w, "previous = %s\n", obj.PreviousTransaction.Hex())
	fmt.Fprintf(w, "contents = %#x\n", obj.Contents)
	return nil
}

func showTransaction(ctx *cli.Context, db *authority.PerpetualStore) error {
	digest, err := common.HexToDigest(ctx.String(txFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid --%s: %w", txFlag.Name, err)
	}
	cert, err := db.GetCertificate(digest)
	if err != nil {
		return err
	}
	effects, err := db.GetEffects(digest)
	if err != nil {
		return err
	}
	if cert == nil && effects == nil {
		return fmt.Errorf("transaction %s not found", digest.Hex())
	}
	w := ctx.App.Writer
	if cert != nil {
		data := cert.Data()
		fmt.Fprintf(w, "certificate = %s epoch=%d signatures=%d\n", digest.Hex(), cert.Auth.Epoch, len(cert.Auth.Signatures))
		fmt.Fprintf(w, "call        = %s::%s sender=%s gas=%s\n", data.Module, data.Function, data.Sender.Hex(), data.Gas)
	}
	if effects == nil {
		fmt.Fprintln(w, "effects     = <not executed>")
		return nil
	}
	fx := &effects.Effects
	fmt.Fprintf(w, "effects     = %s success=%t written=%d removed=%d\n", effects.Digest().Hex(), fx.Status.Success, len(fx.Written()), len(fx.Removed()))
	return nil
}

func inspect(ctx *cli.Context) error {
	stores, err := namespaces(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, ns := range stores {
		if ns == rawdb.EpochNamespace && store.Epoch() == nil {
			log.Warn("No epoch database found")
			continue
		}
		if err := store.Inspect(ns, ctx.App.Writer); err != nil {
			return err
		}
	}
	return nil
}

func dbStats(ctx *cli.Context) error {
	stores, err := namespaces(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, ns := range stores {
		if ns == rawdb.EpochNamespace && store.Epoch() == nil {
			continue
		}
		stats, err := store.Stat(ns)
		if err != nil {
			log.Warn("Failed to read database stats", "store", ns, "error", err)
			continue
		}
		fmt.Fprintf(ctx.App.Writer, "[%s]\n%s\n", ns, stats)
	}
	return nil
}

func showMetaData(ctx *cli.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetHeader([]string{"Store", "Field", "Value"})
	table.AppendBulk(store.Metadata())
	table.Render()
	return nil
}

func showConsensusIndex(ctx *cli.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	epoch := store.Epoch()
	if epoch == nil {
		return fmt.Errorf("no epoch database in %s", ctx.String(dataDirFlag.Name))
	}
	idx, err := epoch.LastConsensusIndex()
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "epoch=%d %s message=%s next=%d\n", epoch.Epoch(), idx, idx.Message.Hex(), idx.Index+1)
	return nil
}
