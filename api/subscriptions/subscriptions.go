// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vechain/restake/api/utils"
	"github.com/vechain/restake/log"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/thor"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	receiptBuffer = 64
)

type Subscriptions struct {
	rt       *runtime.Runtime
	upgrader *websocket.Upgrader
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func New(rt *runtime.Runtime, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		rt: rt,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == origin || allowed == "*" {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// filter turns a committed receipt into the messages sent to one subscriber.
type filter func(receipt *runtime.Receipt) []any

func parseAddress(req *http.Request, key string) (*thor.Address, error) {
	s := req.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	addr, err := thor.ParseAddress(s)
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, key))
	}
	return addr, nil
}

func receiptFilter(req *http.Request) (filter, error) {
	action := req.URL.Query().Get("action")
	caller, err := parseAddress(req, "caller")
	if err != nil {
		return nil, err
	}
	return func(r *runtime.Receipt) []any {
		if action != "" && r.Action != action {
			return nil
		}
		if caller != nil && r.Caller != *caller {
			return nil
		}
		return []any{r}
	}, nil
}

func eventFilter(req *http.Request) (filter, error) {
	name := req.URL.Query().Get("name")
	contract, err := parseAddress(req, "contract")
	if err != nil {
		return nil, err
	}
	subject, err := parseAddress(req, "subject")
	if err != nil {
		return nil, err
	}
	return func(r *runtime.Receipt) []any {
		var msgs []any
		for i, ev := range r.Outbox.Events {
			if name != "" && ev.Name != name {
				continue
			}
			if contract != nil && ev.Contract != *contract {
				continue
			}
			if subject != nil && ev.Subject != *subject {
				continue
			}
			msgs = append(msgs, &EventMessage{
				InvocationID: r.ID,
				Index:        uint32(i),
				BlockNumber:  ev.Block,
				Contract:     ev.Contract,
				Name:         ev.Name,
				Subject:      ev.Subject,
				Data:         ev.Data,
			})
		}
		return msgs
	}, nil
}

func transferFilter(req *http.Request) (filter, error) {
	sender, err := parseAddress(req, "sender")
	if err != nil {
		return nil, err
	}
	recipient, err := parseAddress(req, "recipient")
	if err != nil {
		return nil, err
	}
	return func(r *runtime.Receipt) []any {
		var msgs []any
		for _, tr := range r.Outbox.Transfers {
			if sender != nil && tr.From != *sender {
				continue
			}
			if recipient != nil && tr.To != *recipient {
				continue
			}
			msgs = append(msgs, newTransferMessage(r, tr))
		}
		return msgs
	}, nil
}

func (s *Subscriptions) handleSubject(newFilter func(*http.Request) (filter, error)) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		f, err := newFilter(req)
		if err != nil {
			return err
		}
		select {
		case <-s.done:
			return utils.HTTPError(errors.New("subscriptions closed"), http.StatusServiceUnavailable)
		default:
		}
		s.wg.Add(1)
		defer s.wg.Done()

		// subscribe before the handshake completes, so nothing committed after it is missed
		ch := make(chan *runtime.Receipt, receiptBuffer)
		sub := s.rt.SubscribeReceipts(ch)
		defer sub.Unsubscribe()

		conn, err := s.upgrader.Upgrade(w, req, nil)
		// since the conn is hijacked here, no error should be returned in lines below
		if err != nil {
			logger.Debug("upgrade to websocket", "err", err)
			return nil
		}
		metricActiveCount().Add(1)
		defer metricActiveCount().Add(-1)

		if err := s.pipe(conn, sub, ch, f); err != nil {
			logger.Debug("subscription closed", "path", req.URL.Path, "err", err)
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()), time.Now().Add(writeWait))
		} else {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		}
		conn.Close()
		return nil
	}
}

// pipe forwards filtered receipts to conn until the peer goes away or the subscriptions close.
func (s *Subscriptions) pipe(conn *websocket.Conn, sub event.Subscription, ch <-chan *runtime.Receipt, f filter) error {
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case err := <-sub.Err():
			return err
		case receipt := <-ch:
			for _, msg := range f(receipt) {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

// Close ends every open subscription and waits for them to return.
func (s *Subscriptions) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/receipt").
		Methods(http.MethodGet).
		Name("WS " + pathPrefix + "/receipt").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubject(receiptFilter)))
	sub.Path("/event").
		Methods(http.MethodGet).
		Name("WS " + pathPrefix + "/event").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubject(eventFilter)))
	sub.Path("/transfer").
		Methods(http.MethodGet).
		Name("WS " + pathPrefix + "/transfer").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubject(transferFilter)))
}
