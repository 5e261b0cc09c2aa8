// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/logdb"
	"github.com/vechain/restake/thor"
)

type EventCriteria struct {
	Contract *thor.Address `json:"contract,omitempty"`
	Name     string        `json:"name,omitempty"`
	Subject  *thor.Address `json:"subject,omitempty"`
}

type EventFilter struct {
	utils.LogQuery
	InvocationID string           `json:"invocationID,omitempty"`
	CriteriaSet  []*EventCriteria `json:"criteriaSet,omitempty"`
}

type FilteredEvent struct {
	InvocationID string            `json:"invocationID"`
	Index        uint32            `json:"index"`
	BlockNumber  uint64            `json:"blockNumber"`
	Contract     thor.Address      `json:"contract"`
	Name         string            `json:"name"`
	Subject      thor.Address      `json:"subject"`
	Data         map[string]string `json:"data,omitempty"`
}

func convertEvent(e *logdb.Event) *FilteredEvent {
	return &FilteredEvent{
		InvocationID: e.InvocationID,
		Index:        e.Index,
		BlockNumber:  e.BlockNumber,
		Contract:     e.Contract,
		Name:         e.Name,
		Subject:      e.Subject,
		Data:         e.Data,
	}
}

type Events struct {
	db    *logdb.LogDB
	limit uint64
}

func New(db *logdb.LogDB, logsLimit uint64) *Events {
	return &Events{
		db,
		logsLimit,
	}
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter EventFilter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	r, opts, order, err := filter.Convert(e.limit)
	if err != nil {
		return err
	}
	f := &logdb.EventFilter{
		InvocationID: filter.InvocationID,
		Range:        r,
		Options:      opts,
		Order:        order,
	}
	for i, c := range filter.CriteriaSet {
		if c == nil {
			return utils.BadRequest(fmt.Errorf("criteriaSet[%d]: null not allowed", i))
		}
		f.CriteriaSet = append(f.CriteriaSet, &logdb.EventCriteria{
			Contract: c.Contract,
			Name:     c.Name,
			Subject:  c.Subject,
		})
	}

	events, err := e.db.FilterEvents(req.Context(), f)
	if err != nil {
		return err
	}
	if len(events) > int(e.limit) {
		return utils.Forbidden(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	fes := make([]*FilteredEvent, 0, len(events))
	for _, ev := range events {
		fes = append(fes, convertEvent(ev))
	}
	return utils.WriteJSON(w, fes)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("POST /logs/event").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
