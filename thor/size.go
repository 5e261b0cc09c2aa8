// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"fmt"
	"io"
)

// StorageSize counts bytes, typically of a snapshot written through it.
type StorageSize uint64

var _ io.Writer = (*StorageSize)(nil)

var sizeUnits = []string{"KiB", "MiB", "GiB", "TiB"}

func (ss StorageSize) String() string {
	if ss < 1024 {
		return fmt.Sprintf("%d B", uint64(ss))
	}
	v := float64(ss) / 1024
	unit := 0
	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", v, sizeUnits[unit])
}

// Write adds len(b) to the size.
func (ss *StorageSize) Write(b []byte) (int, error) {
	*ss += StorageSize(len(b))
	return len(b), nil
}
