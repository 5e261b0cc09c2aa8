// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/big"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vechain/restake/log"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

var logger = log.WithContext("pkg", "logdb")

// LogDB journals committed events and transfers in sqlite.
type LogDB struct {
	path          string
	db            *sql.DB
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	// a single connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(eventTableSchema + transferTableSchema); err != nil {
		return nil, errors.Wrap(err, "create tables")
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("log db opened", "path", path, "sqlite", driverVer)
	return &LogDB{
		path,
		db,
		driverVer,
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// Batch collects the effects of one committed invocation.
type Batch struct {
	db           *sql.DB
	invocationID string
	block        uint64
	events       []*Event
	transfers    []*Transfer
}

// NewBatch starts a batch for invocationID committed at block.
func (db *LogDB) NewBatch(invocationID string, block uint64) *Batch {
	return &Batch{db: db.db, invocationID: invocationID, block: block}
}

func (b *Batch) AddEvent(ev xenv.Event) *Batch {
	b.events = append(b.events, &Event{
		InvocationID: b.invocationID,
		Index:        uint32(len(b.events)),
		BlockNumber:  b.block,
		Contract:     ev.Contract,
		Name:         ev.Name,
		Subject:      ev.Subject,
		Data:         ev.Data,
	})
	return b
}

// AddTransfer journals one row per asset of the transfer.
func (b *Batch) AddTransfer(tr xenv.Transfer) *Batch {
	for _, p := range tr.Payments {
		b.transfers = append(b.transfers, &Transfer{
			InvocationID: b.invocationID,
			Index:        uint32(len(b.transfers)),
			BlockNumber:  b.block,
			Sender:       tr.From,
			Recipient:    tr.To,
			Asset:        p.Asset,
			Amount:       p.Amount,
		})
	}
	return b
}

func (b *Batch) IsEmpty() bool {
	return len(b.events) == 0 && len(b.transfers) == 0
}

func (b *Batch) execInTx(ctx context.Context, proc func(*sql.Tx) error) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := proc(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Commit writes the batch in one sqlite transaction.
func (b *Batch) Commit(ctx context.Context) error {
	if b.IsEmpty() {
		return nil
	}
	err := b.execInTx(ctx, func(tx *sql.Tx) error {
		for _, ev := range b.events {
			data, err := json.Marshal(ev.Data)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO event(invocationID, eventIndex, blockNumber, contract, name, subject, data) VALUES (?, ?, ?, ?, ?, ?, ?);",
				ev.InvocationID,
				ev.Index,
				ev.BlockNumber,
				ev.Contract.Bytes(),
				ev.Name,
				ev.Subject.Bytes(),
				string(data),
			); err != nil {
				return err
			}
		}
		for _, tr := range b.transfers {
			if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO transfer(invocationID, transferIndex, blockNumber, sender, recipient, asset, amount) VALUES (?, ?, ?, ?, ?, ?, ?);",
				tr.InvocationID,
				tr.Index,
				tr.BlockNumber,
				tr.Sender.Bytes(),
				tr.Recipient.Bytes(),
				tr.Asset.String(),
				tr.Amount.String(),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "commit log batch")
	}
	metricWrittenRows().AddWithLabel(int64(len(b.events)), map[string]string{"table": "event"})
	metricWrittenRows().AddWithLabel(int64(len(b.transfers)), map[string]string{"table": "transfer"})
	return nil
}

func rangeClause(r *Range, args []any) (string, []any) {
	if r == nil {
		return "", args
	}
	stmt := " AND blockNumber >= ? "
	args = append(args, r.From)
	if r.To >= r.From {
		stmt += " AND blockNumber <= ? "
		args = append(args, r.To)
	}
	return stmt, args
}

func tailClause(order Order, opts *Options, indexColumn string, args []any) (string, []any) {
	var stmt string
	if order == DESC {
		stmt = " ORDER BY blockNumber DESC, invocationID DESC, " + indexColumn + " DESC "
	} else {
		stmt = " ORDER BY blockNumber ASC, invocationID ASC, " + indexColumn + " ASC "
	}
	if opts != nil {
		stmt += " LIMIT ?, ? "
		args = append(args, opts.Offset, opts.Limit)
	}
	return stmt, args
}

func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*Event, error) {
	defer observe("event", time.Now())
	if filter == nil {
		return db.queryEvents(ctx, "SELECT * FROM event ORDER BY blockNumber ASC, invocationID ASC, eventIndex ASC")
	}
	var args []any
	stmt := "SELECT * FROM event WHERE 1"
	if filter.InvocationID != "" {
		stmt += " AND invocationID = ? "
		args = append(args, filter.InvocationID)
	}
	var clause string
	clause, args = rangeClause(filter.Range, args)
	stmt += clause
	for i, criteria := range filter.CriteriaSet {
		if i == 0 {
			stmt += " AND (( 1"
		} else {
			stmt += " OR ( 1"
		}
		if criteria.Contract != nil {
			args = append(args, criteria.Contract.Bytes())
			stmt += " AND contract = ? "
		}
		if criteria.Name != "" {
			args = append(args, criteria.Name)
			stmt += " AND name = ? "
		}
		if criteria.Subject != nil {
			args = append(args, criteria.Subject.Bytes())
			stmt += " AND subject = ? "
		}
		stmt += ")"
		if i == len(filter.CriteriaSet)-1 {
			stmt += ")"
		}
	}
	clause, args = tailClause(filter.Order, filter.Options, "eventIndex", args)
	return db.queryEvents(ctx, stmt+clause, args...)
}

func (db *LogDB) FilterTransfers(ctx context.Context, filter *TransferFilter) ([]*Transfer, error) {
	defer observe("transfer", time.Now())
	if filter == nil {
		return db.queryTransfers(ctx, "SELECT * FROM transfer ORDER BY blockNumber ASC, invocationID ASC, transferIndex ASC")
	}
	var args []any
	stmt := "SELECT * FROM transfer WHERE 1"
	if filter.InvocationID != "" {
		stmt += " AND invocationID = ? "
		args = append(args, filter.InvocationID)
	}
	var clause string
	clause, args = rangeClause(filter.Range, args)
	stmt += clause
	for i, criteria := range filter.CriteriaSet {
		if i == 0 {
			stmt += " AND (( 1"
		} else {
			stmt += " OR ( 1"
		}
		if criteria.Sender != nil {
			args = append(args, criteria.Sender.Bytes())
			stmt += " AND sender = ? "
		}
		if criteria.Recipient != nil {
			args = append(args, criteria.Recipient.Bytes())
			stmt += " AND recipient = ? "
		}
		if criteria.Asset != nil {
			args = append(args, criteria.Asset.String())
			stmt += " AND asset = ? "
		}
		stmt += ")"
		if i == len(filter.CriteriaSet)-1 {
			stmt += ")"
		}
	}
	clause, args = tailClause(filter.Order, filter.Options, "transferIndex", args)
	return db.queryTransfers(ctx, stmt+clause, args...)
}

func observe(table string, start time.Time) {
	metricQueryTime().ObserveWithLabels(time.Since(start).Milliseconds(), map[string]string{"table": table})
}

func (db *LogDB) queryEvents(ctx context.Context, stmt string, args ...any) ([]*Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			invocationID string
			index        uint32
			blockNumber  uint64
			contract     []byte
			name         string
			subject      []byte
			data         sql.NullString
		)
		if err := rows.Scan(
			&invocationID,
			&index,
			&blockNumber,
			&contract,
			&name,
			&subject,
			&data,
		); err != nil {
			return nil, err
		}
		ev := &Event{
			InvocationID: invocationID,
			Index:        index,
			BlockNumber:  blockNumber,
			Contract:     thor.BytesToAddress(contract),
			Name:         name,
			Subject:      thor.BytesToAddress(subject),
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &ev.Data); err != nil {
				return nil, errors.Wrap(err, "decode event data")
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (db *LogDB) queryTransfers(ctx context.Context, stmt string, args ...any) ([]*Transfer, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []*Transfer
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			invocationID string
			index        uint32
			blockNumber  uint64
			sender       []byte
			recipient    []byte
			asset        string
			amount       string
		)
		if err := rows.Scan(
			&invocationID,
			&index,
			&blockNumber,
			&sender,
			&recipient,
			&asset,
			&amount,
		); err != nil {
			return nil, err
		}
		tr := &Transfer{
			InvocationID: invocationID,
			Index:        index,
			BlockNumber:  blockNumber,
			Sender:       thor.BytesToAddress(sender),
			Recipient:    thor.BytesToAddress(recipient),
		}
		if err := tr.Asset.UnmarshalText([]byte(asset)); err != nil {
			return nil, err
		}
		var ok bool
		if tr.Amount, ok = new(big.Int).SetString(amount, 10); !ok {
			return nil, errors.Errorf("invalid transfer amount %q", amount)
		}
		transfers = append(transfers, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transfers, nil
}
