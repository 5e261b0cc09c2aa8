// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"sync"
	"time"

	"github.com/vechain/restake/thor"
	"github.com/vechain/restake/xenv"
)

// Clock provides the block context of invocations.
type Clock interface {
	Block() uint64
	Epoch() uint64
	Time() uint64
}

func blockContext(c Clock) xenv.BlockContext {
	return xenv.BlockContext{
		Number: c.Block(),
		Epoch:  c.Epoch(),
		Time:   c.Time(),
	}
}

// ManualClock only moves when advanced.
type ManualClock struct {
	mu          sync.Mutex
	genesis     uint64
	block       uint64
	epochLength uint64
}

// NewManualClock creates a clock at block 0. Zero epochLength uses thor.EpochLength().
func NewManualClock(genesis uint64, epochLength uint64) *ManualClock {
	if epochLength == 0 {
		epochLength = thor.EpochLength()
	}
	return &ManualClock{genesis: genesis, epochLength: epochLength}
}

func (c *ManualClock) Block() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

func (c *ManualClock) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block / c.epochLength
}

func (c *ManualClock) Time() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.genesis + c.block*thor.BlockInterval()
}

func (c *ManualClock) EpochLength() uint64 {
	return c.epochLength
}

// Advance moves the clock forward by n blocks.
func (c *ManualClock) Advance(blocks uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block += blocks
}

// AdvanceEpochs moves the clock to the first block n epochs later.
func (c *ManualClock) AdvanceEpochs(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = (c.block/c.epochLength + n) * c.epochLength
}

// WallClock derives blocks from the time elapsed since genesis.
type WallClock struct {
	genesis uint64
	now     func() time.Time
}

func NewWallClock(genesis uint64) *WallClock {
	return &WallClock{genesis: genesis, now: time.Now}
}

func (c *WallClock) Time() uint64 {
	return uint64(c.now().Unix())
}

func (c *WallClock) Block() uint64 {
	now := c.Time()
	if now <= c.genesis {
		return 0
	}
	return (now - c.genesis) / thor.BlockInterval()
}

func (c *WallClock) Epoch() uint64 {
	return c.Block() / thor.EpochLength()
}
