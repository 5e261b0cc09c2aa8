// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package httpserver

import (
	"net"
	"net/http"
	"time"

	"github.com/vechain/restake/co"
)

// serve runs handler on listener until the returned func is called.
func serve(listener net.Listener, handler http.Handler) func() {
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}

	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	goes.GoStoppable(func(stop <-chan struct{}) {
		<-stop
		srv.Close()
	})
	return func() {
		goes.Stop()
		goes.Wait()
	}
}
