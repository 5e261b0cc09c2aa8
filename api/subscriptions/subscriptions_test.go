// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/restaking"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/test/datagen"
	"github.com/vechain/restake/test/testnode"
	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

func initServer(t *testing.T) (*testnode.Node, *Subscriptions, string) {
	node, err := testnode.New()
	require.NoError(t, err)

	router := mux.NewRouter()
	subs := New(node.Runtime, []string{"*"})
	subs.Mount(router, "/subscriptions")
	ts := httptest.NewServer(router)
	t.Cleanup(func() {
		subs.Close()
		ts.Close()
		node.Close()
	})
	return node, subs, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func invoke(t *testing.T, node *testnode.Node, caller thor.Address, fn func(r *restaking.Restaking) error) {
	receipt, err := node.Runtime.Invoke(context.Background(), runtime.Invocation{Action: "test", Caller: caller}, func(env *xenv.Environment) error {
		return fn(restaking.New(testnode.LedgerAddr, env))
	})
	require.NoError(t, err)
	require.False(t, receipt.Reverted, receipt.Error)
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestSubscribeEvents(t *testing.T) {
	node, _, url := initServer(t)
	owner := datagen.RandAddress()

	conn := dial(t, url+"/subscriptions/event?name=TokenAdded&contract="+testnode.LedgerAddr.String())

	invoke(t, node, owner, func(r *restaking.Restaking) error { return r.Init(owner) })
	invoke(t, node, owner, func(r *restaking.Restaking) error { return r.AddToken("WEGLD", big.NewInt(1e18), 18) })

	var msg EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "TokenAdded", msg.Name)
	assert.Equal(t, testnode.LedgerAddr, msg.Contract)
	assert.Equal(t, owner, msg.Subject)
	assert.Equal(t, "WEGLD", msg.Data["token"])
	assert.NotEmpty(t, msg.InvocationID)
}

func TestSubscribeReceipts(t *testing.T) {
	node, _, url := initServer(t)
	owner := datagen.RandAddress()
	other := datagen.RandAddress()

	conn := dial(t, url+"/subscriptions/receipt?caller="+owner.String())

	invoke(t, node, other, func(r *restaking.Restaking) error { return r.Init(owner) })
	invoke(t, node, owner, func(r *restaking.Restaking) error { return r.SetUnbondEpochs(3) })

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, owner.String(), msg["caller"])
	assert.Equal(t, false, msg["reverted"])
}

func TestBadQuery(t *testing.T) {
	_, _, url := initServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url+"/subscriptions/event?contract=0xzz", nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseEndsSubscriptions(t *testing.T) {
	_, subs, url := initServer(t)

	conn := dial(t, url+"/subscriptions/transfer")
	subs.Close()

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)

	_, resp, err := websocket.DefaultDialer.Dial(url+"/subscriptions/transfer", nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
