// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import (
	"sync"
)

// Goes runs and manages life-cycle of go routines, with a shared stop channel.
type Goes struct {
	wg       sync.WaitGroup
	init     sync.Once
	stopOnce sync.Once
	stop     chan struct{}
}

func (g *Goes) stopChan() chan struct{} {
	g.init.Do(func() {
		g.stop = make(chan struct{})
	})
	return g.stop
}

// Go run f in go routine.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// GoStoppable runs f in a go routine passing a channel closed by Stop.
func (g *Goes) GoStoppable(f func(stop <-chan struct{})) {
	ch := g.stopChan()
	g.Go(func() { f(ch) })
}

// Stop closes the stop channel. It is safe to call more than once.
func (g *Goes) Stop() {
	ch := g.stopChan()
	g.stopOnce.Do(func() { close(ch) })
}

// Wait wait for all go routines started by 'Go' done.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Done returns a channel that is closed when all go routines have finished.
func (g *Goes) Done() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.wg.Wait()
	}()
	return done
}
