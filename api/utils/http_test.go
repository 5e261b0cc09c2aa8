// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/restake/builtin/reverts"
)

func TestStatusOf(t *testing.T) {
	tests := map[reverts.Kind]int{
		reverts.UnknownAddress:            http.StatusNotFound,
		reverts.UnknownTarget:             http.StatusNotFound,
		reverts.PreconditionFailed:        http.StatusConflict,
		reverts.Unauthorized:              http.StatusForbidden,
		reverts.InsufficientBalance:       http.StatusBadRequest,
		reverts.CapExceeded:               http.StatusBadRequest,
		reverts.InsufficientComputeBudget: http.StatusBadRequest,
		reverts.RemoteCallFailed:          http.StatusInternalServerError,
		reverts.Unknown:                   http.StatusInternalServerError,
	}
	for kind, status := range tests {
		assert.Equal(t, status, StatusOf(kind), kind.String())
	}
}

func TestWrapHandlerFunc(t *testing.T) {
	serve := func(err error) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		WrapHandlerFunc(func(http.ResponseWriter, *http.Request) error { return err })(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		return rr
	}

	rr := serve(Revert(reverts.New(reverts.OverRevoke, "too much")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "too much", strings.TrimSpace(rr.Body.String()))

	rr = serve(Revert(errors.New("disk")))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	rr = serve(NotFound(errors.New("gone")))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestParseJSON(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	assert.NoError(t, ParseJSON(strings.NewReader(`{"a":1}`), &v))
	assert.Equal(t, 1, v.A)
	assert.Error(t, ParseJSON(strings.NewReader(`{"b":1}`), &v))
}
