// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a revert.
type Kind uint8

const (
	Unknown Kind = iota
	UnknownAddress
	InsufficientBalance
	ZeroAmount
	CapExceeded
	CapBelowCurrent
	NothingDelegated
	OverRevoke
	AlreadyWhitelisted
	DirectoryFull
	CapacityExceeded
	NoEligibleTarget
	UnknownTarget
	PreconditionFailed
	InsufficientComputeBudget
	RemoteCallFailed
	Unauthorized
	InvalidArgument
)

var kindNames = [...]string{
	Unknown:                   "Unknown",
	UnknownAddress:            "UnknownAddress",
	InsufficientBalance:       "InsufficientBalance",
	ZeroAmount:                "ZeroAmount",
	CapExceeded:               "CapExceeded",
	CapBelowCurrent:           "CapBelowCurrent",
	NothingDelegated:          "NothingDelegated",
	OverRevoke:                "OverRevoke",
	AlreadyWhitelisted:        "AlreadyWhitelisted",
	DirectoryFull:             "DirectoryFull",
	CapacityExceeded:          "CapacityExceeded",
	NoEligibleTarget:          "NoEligibleTarget",
	UnknownTarget:             "UnknownTarget",
	PreconditionFailed:        "PreconditionFailed",
	InsufficientComputeBudget: "InsufficientComputeBudget",
	RemoteCallFailed:          "RemoteCallFailed",
	Unauthorized:              "Unauthorized",
	InvalidArgument:           "InvalidArgument",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown revert kind %q", text)
}

// ErrRevert aborts the invocation it is returned from.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

func Newf(kind Kind, format string, args ...any) *ErrRevert {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

// KindOf returns the kind of the revert wrapped in err, or Unknown.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return Unknown
}

// Is reports whether err is a revert of the given kind.
func Is(err error, kind Kind) bool {
	var ve *ErrRevert
	return errors.As(err, &ve) && ve.kind == kind
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}
