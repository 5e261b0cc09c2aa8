// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/restake/builtin/restaking"
	"github.com/vechain/restake/runtime"
	"github.com/vechain/restake/test/datagen"
	"github.com/vechain/restake/test/testnode"
	"github.com/vechain/restake/xenv"
)

type fixedBacklog int

func (b fixedBacklog) Pending() int { return int(b) }

func TestStatus(t *testing.T) {
	clock := runtime.NewManualClock(0, 10)
	clock.Advance(25)

	h := New(clock, fixedBacklog(3))
	s, err := h.Status(5)
	require.NoError(t, err)
	assert.True(t, s.Healthy)
	assert.Equal(t, uint64(25), s.Block)
	assert.Equal(t, uint64(2), s.Epoch)
	assert.Nil(t, s.LastInvocation)

	s, err = h.Status(2)
	require.NoError(t, err)
	assert.False(t, s.Healthy)
	assert.Equal(t, 3, s.PendingCalls)
}

func TestRunTracksInvocations(t *testing.T) {
	node, err := testnode.New()
	require.NoError(t, err)
	defer node.Close()

	h := New(node.Clock, node.Remote)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		h.Run(ctx, node.Runtime)
		close(done)
	}()

	owner := datagen.RandAddress()
	ping := func() (*runtime.Receipt, error) {
		return node.Runtime.Invoke(ctx, runtime.Invocation{Action: "ping", Caller: owner}, func(env *xenv.Environment) error {
			_, err := restaking.New(testnode.LedgerAddr, env).Owner()
			return err
		})
	}

	// Run subscribes asynchronously, invocations before that are not seen
	require.Eventually(t, func() bool {
		if _, err := ping(); err != nil {
			return false
		}
		s, err := h.Status(0)
		return err == nil && s.LastInvocation != nil
	}, 5*time.Second, 10*time.Millisecond)

	receipt, err := ping()
	require.NoError(t, err)
	require.False(t, receipt.Reverted)
	require.Eventually(t, func() bool {
		s, err := h.Status(0)
		return err == nil && s.LastInvocation != nil && s.LastInvocation.ID == receipt.ID
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestHealthAPI(t *testing.T) {
	router := mux.NewRouter()
	NewAPI(New(runtime.NewManualClock(0, 10), fixedBacklog(2))).Mount(router, "/health")
	ts := httptest.NewServer(router)
	defer ts.Close()

	get := func(query string) (int, *Status) {
		res, err := http.Get(ts.URL + "/health" + query)
		require.NoError(t, err)
		defer res.Body.Close()
		var s Status
		require.NoError(t, json.NewDecoder(res.Body).Decode(&s))
		return res.StatusCode, &s
	}

	code, s := get("")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, s.Healthy)

	code, s = get("?maxPendingCalls=1")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, s.Healthy)
	assert.Equal(t, 2, s.PendingCalls)
}
