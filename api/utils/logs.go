// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"fmt"
	"math"

	"github.com/vechain/restake/logdb"
)

// Range bounds block numbers, both ends inclusive.
type Range struct {
	From *uint64 `json:"from,omitempty"`
	To   *uint64 `json:"to,omitempty"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// LogQuery holds the paging of journal queries.
type LogQuery struct {
	Range   *Range      `json:"range,omitempty"`
	Options *Options    `json:"options,omitempty"`
	Order   logdb.Order `json:"order,omitempty"`
}

// Convert validates the query against limit. When no options are given the
// limit plus one is requested, so callers can detect oversized results.
func (q *LogQuery) Convert(limit uint64) (*logdb.Range, *logdb.Options, logdb.Order, error) {
	if q.Options != nil && q.Options.Limit > limit {
		return nil, nil, "", Forbidden(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", limit))
	}
	if q.Options != nil && q.Options.Offset > math.MaxInt64 {
		return nil, nil, "", BadRequest(fmt.Errorf("options.offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	if q.Order != "" && q.Order != logdb.ASC && q.Order != logdb.DESC {
		return nil, nil, "", BadRequest(fmt.Errorf("order: invalid value %q", q.Order))
	}

	var r *logdb.Range
	if q.Range != nil {
		if q.Range.From != nil && q.Range.To != nil && *q.Range.From > *q.Range.To {
			return nil, nil, "", BadRequest(fmt.Errorf("range.to must be greater than or equal to range.from"))
		}
		r = &logdb.Range{}
		if q.Range.From != nil {
			r.From = *q.Range.From
		}
		if q.Range.To != nil {
			r.To = *q.Range.To
		} else if r.From > 0 {
			// open ended
			r.To = r.From - 1
		} else {
			r = nil
		}
	}

	opts := &logdb.Options{Limit: limit + 1}
	if q.Options != nil {
		opts = &logdb.Options{Offset: q.Options.Offset, Limit: q.Options.Limit}
	}
	return r, opts, q.Order, nil
}
