// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package balance

import (
	"io"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/restake/builtin/reverts"
)

// Balance is a multi-asset balance with unique keys and positive amounts.
// Entries are kept sorted, the base asset first.
type Balance struct {
	entries []Payment
}

// New creates a balance holding the given payments, merged by asset.
func New(payments ...Payment) (*Balance, error) {
	b := &Balance{}
	for _, p := range payments {
		if err := b.Add(p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Balance) search(asset AssetKey) (int, bool) {
	i := sort.Search(len(b.entries), func(i int) bool {
		return !b.entries[i].Asset.Less(asset)
	})
	return i, i < len(b.entries) && b.entries[i].Asset == asset
}

func checkAmount(p Payment) error {
	if p.Amount == nil || p.Amount.Sign() == 0 {
		return reverts.Newf(reverts.ZeroAmount, "zero amount of %v", p.Asset)
	}
	if p.Amount.Sign() < 0 {
		return reverts.Newf(reverts.InvalidArgument, "negative amount of %v", p.Asset)
	}
	return nil
}

// Add increases the amount of the payment's asset.
func (b *Balance) Add(p Payment) error {
	if err := checkAmount(p); err != nil {
		return err
	}
	i, found := b.search(p.Asset)
	if found {
		b.entries[i].Amount = new(big.Int).Add(b.entries[i].Amount, p.Amount)
		return nil
	}
	b.entries = append(b.entries, Payment{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = NewPayment(p.Asset, p.Amount)
	return nil
}

// Deduct decreases the amount of the payment's asset, deleting the entry when it reaches zero.
func (b *Balance) Deduct(p Payment) error {
	if err := checkAmount(p); err != nil {
		return err
	}
	i, found := b.search(p.Asset)
	if !found {
		return reverts.Newf(reverts.InsufficientBalance, "no %v in balance", p.Asset)
	}
	switch b.entries[i].Amount.Cmp(p.Amount) {
	case -1:
		return reverts.Newf(reverts.InsufficientBalance, "insufficient %v: have %v, want %v", p.Asset, b.entries[i].Amount, p.Amount)
	case 0:
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
	default:
		b.entries[i].Amount = new(big.Int).Sub(b.entries[i].Amount, p.Amount)
	}
	return nil
}

// Merge adds every entry of other.
func (b *Balance) Merge(other *Balance) {
	if other == nil {
		return
	}
	for _, p := range other.entries {
		// entries of a balance are always positive
		_ = b.Add(p)
	}
}

// DeductAll deducts every payment or none of them.
func (b *Balance) DeductAll(payments []Payment) error {
	next := b.Clone()
	for _, p := range payments {
		if err := next.Deduct(p); err != nil {
			return err
		}
	}
	b.entries = next.entries
	return nil
}

// AmountOf returns the amount held of asset, zero if absent.
func (b *Balance) AmountOf(asset AssetKey) *big.Int {
	if i, found := b.search(asset); found {
		return new(big.Int).Set(b.entries[i].Amount)
	}
	return new(big.Int)
}

// List returns copies of all entries, base asset first.
func (b *Balance) List() []Payment {
	list := make([]Payment, 0, len(b.entries))
	for _, p := range b.entries {
		list = append(list, NewPayment(p.Asset, p.Amount))
	}
	return list
}

// Split separates the base asset entry from the token entries.
func (b *Balance) Split() (*Payment, []Payment) {
	list := b.List()
	if len(list) > 0 && list[0].Asset.IsBase() {
		return &list[0], list[1:]
	}
	return nil, list
}

func (b *Balance) IsEmpty() bool {
	return b == nil || len(b.entries) == 0
}

func (b *Balance) Len() int {
	return len(b.entries)
}

func (b *Balance) Clone() *Balance {
	return &Balance{entries: b.List()}
}

// EncodeRLP implements rlp.Encoder.
func (b *Balance) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, b.entries)
}

// DecodeRLP implements rlp.Decoder, rejecting unsorted or non-positive entries.
func (b *Balance) DecodeRLP(s *rlp.Stream) error {
	var entries []Payment
	if err := s.Decode(&entries); err != nil {
		return err
	}
	for i, p := range entries {
		if p.Amount == nil || p.Amount.Sign() <= 0 {
			return errors.Errorf("balance entry %d: non-positive amount", i)
		}
		if i > 0 && !entries[i-1].Asset.Less(p.Asset) {
			return errors.Errorf("balance entry %d: unsorted or duplicated asset %v", i, p.Asset)
		}
	}
	b.entries = entries
	return nil
}
