// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu       sync.Mutex
	code     map[common.Address][]byte
	failures int
	calls    int
}

func (f *fakeBackend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("503 service unavailable")
	}
	return f.code[account], nil
}

func (f *fakeBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, nil
}

const contract = "0x00000000000000000000000000000000000000aa"

func newClient(t *testing.T, b *fakeBackend, retries int) *Client {
	t.Helper()
	c, err := NewWithBackend(b, Config{Retries: retries, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	require.NoError(t, err)
	return c
}

func TestFetchBytecode_CachesCode(t *testing.T) {
	b := &fakeBackend{code: map[common.Address][]byte{common.HexToAddress(contract): {0x60, 0x01}}}
	c := newClient(t, b, 0)

	for i := 0; i < 3; i++ {
		code, err := c.FetchBytecode(context.Background(), contract)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x01}, code)
	}
	assert.Equal(t, 1, b.calls)
}

func TestFetchBytecode_EmptyCodeNotCached(t *testing.T) {
	b := &fakeBackend{code: map[common.Address][]byte{}}
	c := newClient(t, b, 0)

	code, err := c.FetchBytecode(context.Background(), contract)
	require.NoError(t, err)
	assert.Empty(t, code)

	_, err = c.FetchBytecode(context.Background(), contract)
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls)
}

func TestFetchBytecode_Retries(t *testing.T) {
	b := &fakeBackend{code: map[common.Address][]byte{common.HexToAddress(contract): {0x00}}, failures: 2}
	c := newClient(t, b, 3)

	code, err := c.FetchBytecode(context.Background(), contract)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, code)
	assert.Equal(t, 3, b.calls)
}

func TestFetchBytecode_GivesUp(t *testing.T) {
	b := &fakeBackend{failures: 10}
	c := newClient(t, b, 2)

	_, err := c.FetchBytecode(context.Background(), contract)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 3, b.calls)
}

func TestFetchBytecode_InvalidAddress(t *testing.T) {
	c := newClient(t, &fakeBackend{}, 0)
	_, err := c.FetchBytecode(context.Background(), "0x1234")
	assert.ErrorIs(t, err, errors.ErrInvalidAddress)
}

func TestFetchBytecode_CancelledContext(t *testing.T) {
	b := &fakeBackend{failures: 10}
	c := newClient(t, b, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchBytecode(ctx, contract)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, b.calls)
}

func TestDial_RequiresURL(t *testing.T) {
	_, err := Dial(context.Background(), Config{})
	assert.ErrorIs(t, err, errors.ErrValidation)
}
