// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/restake/genesis"
	"github.com/vechain/restake/kv"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/thor"
)

const snapshotVersion = 1

// snapshotHeader leads a snapshot stream. It is followed by Count records.
type snapshotHeader struct {
	Version   uint
	GenesisID thor.Bytes32
	Count     uint64
}

type snapshotRecord struct {
	Key   []byte
	Value []byte
}

func countEntries(store kv.Store) (uint64, error) {
	it := store.Iterate(kv.Range{})
	defer it.Release()
	var n uint64
	for it.Next() {
		n++
	}
	return n, it.Error()
}

// writeSnapshot streams the count entries of store, snappy compressed.
// progress is called once per written entry.
func writeSnapshot(w io.Writer, genesisID thor.Bytes32, store kv.Store, count uint64, progress func()) (uint64, error) {
	sw := snappy.NewBufferedWriter(w)
	if err := rlp.Encode(sw, &snapshotHeader{snapshotVersion, genesisID, count}); err != nil {
		return 0, errors.Wrap(err, "write header")
	}

	it := store.Iterate(kv.Range{})
	defer it.Release()
	var n uint64
	for it.Next() {
		if n == count {
			return n, errors.New("store changed while exporting")
		}
		if err := rlp.Encode(sw, &snapshotRecord{it.Key(), it.Value()}); err != nil {
			return n, errors.Wrap(err, "write entry")
		}
		n++
		if progress != nil {
			progress()
		}
	}
	if err := it.Error(); err != nil {
		return n, err
	}
	if n != count {
		return n, errors.New("store changed while exporting")
	}
	return n, sw.Close()
}

// readSnapshot loads a snapshot written by writeSnapshot into store.
// Entries are flushed in batches.
func readSnapshot(r io.Reader, genesisID thor.Bytes32, store kv.Store, progress func(total uint64)) (uint64, error) {
	stream := rlp.NewStream(snappy.NewReader(r), 0)

	var header snapshotHeader
	if err := stream.Decode(&header); err != nil {
		return 0, errors.Wrap(err, "read header")
	}
	if header.Version != snapshotVersion {
		return 0, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}
	if header.GenesisID != genesisID {
		return 0, fmt.Errorf("snapshot of genesis %v, want %v", header.GenesisID, genesisID)
	}

	bulk := store.Bulk()
	var n uint64
	for ; n < header.Count; n++ {
		var rec snapshotRecord
		if err := stream.Decode(&rec); err != nil {
			return n, errors.Wrapf(err, "read entry #%d", n)
		}
		if err := bulk.Put(rec.Key, rec.Value); err != nil {
			return n, err
		}
		if (n+1)%4096 == 0 {
			if err := bulk.Write(); err != nil {
				return n, err
			}
		}
		if progress != nil {
			progress(header.Count)
		}
	}
	return n, bulk.Write()
}

func exportAction(ctx *cli.Context) error {
	initLogger(ctx)
	path := ctx.String(fileFlag.Name)
	if path == "" {
		return fmt.Errorf("-%s required", fileFlag.Name)
	}

	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}
	dir, err := makeInstanceDir(ctx, gene)
	if err != nil {
		return err
	}
	db, _, err := openMainDB(ctx, dir)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, ok, err := genesis.StoredID(db); err != nil {
		return err
	} else if !ok {
		return errors.New("nothing to export, the store is empty")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create snapshot file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	count, err := countEntries(db)
	if err != nil {
		return errors.Wrap(err, "count entries")
	}
	bar := pb.New64(int64(count)).SetMaxWidth(90).Start()
	defer func() { bar.NotPrint = true }()

	var size thor.StorageSize
	n, err := writeSnapshot(io.MultiWriter(w, &size), gene.ID(), db, count, func() { bar.Increment() })
	if err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush snapshot file")
	}
	bar.Finish()
	log.Info("snapshot exported", "entries", n, "size", size, "file", path)
	return nil
}

func importAction(ctx *cli.Context) error {
	initLogger(ctx)
	path := ctx.String(fileFlag.Name)
	if path == "" {
		return fmt.Errorf("-%s required", fileFlag.Name)
	}

	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}
	dir, err := makeInstanceDir(ctx, gene)
	if err != nil {
		return err
	}
	db, _, err := openMainDB(ctx, dir)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, ok, err := genesis.StoredID(db); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("the store at %v is not empty", dir)
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open snapshot file")
	}
	defer f.Close()

	var bar *pb.ProgressBar
	defer func() {
		if bar != nil {
			bar.NotPrint = true
		}
	}()
	n, err := readSnapshot(bufio.NewReader(f), gene.ID(), db, func(total uint64) {
		if bar == nil {
			bar = pb.New64(int64(total)).SetMaxWidth(90).Start()
		}
		bar.Increment()
	})
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}
	log.Info("snapshot imported", "entries", n, "dir", dir)
	return nil
}
