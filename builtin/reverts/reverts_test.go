// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Reverts(t *testing.T) {
	revert := New(CapExceeded, "test")
	assert.Equal(t, "test", revert.message)
	assert.Equal(t, revert.Error(), revert.message)
	assert.Equal(t, CapExceeded, revert.Kind())

	assert.True(t, IsRevertErr(revert))
	assert.False(t, IsRevertErr(nil))
	assert.False(t, IsRevertErr(fmt.Errorf("test")))
	assert.False(t, IsRevertErr(big.NewInt(0)))
}

func TestKindOf(t *testing.T) {
	wrapped := errors.Wrap(Newf(OverRevoke, "revoke %d", 10), "delegation")
	assert.Equal(t, OverRevoke, KindOf(wrapped))
	assert.True(t, Is(wrapped, OverRevoke))
	assert.False(t, Is(wrapped, ZeroAmount))
	assert.True(t, IsRevertErr(wrapped))
	assert.Equal(t, "delegation: revoke 10", wrapped.Error())

	assert.Equal(t, Unknown, KindOf(fmt.Errorf("plain")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "DirectoryFull", DirectoryFull.String())
	assert.Equal(t, "Kind(200)", Kind(200).String())
	text, err := PreconditionFailed.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "PreconditionFailed", string(text))
}

func TestKindUnmarshalText(t *testing.T) {
	var k Kind
	assert.NoError(t, k.UnmarshalText([]byte("OverRevoke")))
	assert.Equal(t, OverRevoke, k)
	assert.Error(t, k.UnmarshalText([]byte("Kind(200)")))
}
