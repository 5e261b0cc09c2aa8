// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

var (
	blockInterval uint64 = 10     // 10 seconds
	epochLength   uint64 = 14_400 // 14400 blocks, 40 hours

	locked bool
)

// Config holds the clock parameters. Test networks shorten the epoch so
// unbonding can be observed quickly.
type Config struct {
	BlockInterval uint64 `yaml:"blockInterval" json:"blockInterval"` // seconds between two blocks.
	EpochLength   uint64 `yaml:"epochLength" json:"epochLength"`     // number of blocks per epoch.
}

// SetConfig sets the config. Zero fields keep their current value.
// Panics once the config is locked.
func SetConfig(cfg Config) {
	if locked {
		panic("config is locked, cannot be set")
	}
	if cfg.BlockInterval != 0 {
		blockInterval = cfg.BlockInterval
	}
	if cfg.EpochLength != 0 {
		epochLength = cfg.EpochLength
	}
}

// LockConfig locks the config, preventing any further changes.
func LockConfig() {
	locked = true
}

func BlockInterval() uint64 {
	return blockInterval
}

func EpochLength() uint64 {
	return epochLength
}
