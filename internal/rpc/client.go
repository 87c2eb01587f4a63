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

// Package rpc fetches deployed EVM bytecode over JSON-RPC.
package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CodeReader is the subset of ethclient used to read contract code.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// Backend reads code and serves eth_call; *ethclient.Client satisfies it.
type Backend interface {
	CodeReader
	ethereum.ContractCaller
}

// Config controls retries and caching.
type Config struct {
	URL            string
	Retries        int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	CacheSize      int
}

// DefaultConfig returns the defaults used by the CLI.
func DefaultConfig() Config {
	return Config{
		Retries:        3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		CacheSize:      512,
	}
}

// Client fetches bytecode with retries and keeps recently fetched code in
// an LRU cache.
type Client struct {
	backend Backend
	closer  func()
	cfg     Config
	cache   *lru.Cache[common.Address, []byte]
}

// Dial connects to the node at cfg.URL.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.WrapValidationError("rpc url is required")
	}
	eth, err := ethclient.DialContext(ctx, cfg.URL)
	if err != nil {
		return nil, errors.WrapCollaborator("dial", err)
	}
	c, err := NewWithBackend(eth, cfg)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.closer = eth.Close
	return c, nil
}

// NewWithBackend builds a client over an existing backend.
func NewWithBackend(backend Backend, cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	cache, err := lru.New[common.Address, []byte](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create bytecode cache: %w", err)
	}
	return &Client{backend: backend, cfg: cfg, cache: cache}, nil
}

// Backend exposes the underlying node connection.
func (c *Client) Backend() Backend {
	return c.backend
}

// FetchBytecode returns the runtime code at address on the latest block.
// Accounts without code return an empty slice and are not cached, since
// code may be deployed there later.
func (c *Client) FetchBytecode(ctx context.Context, address string) ([]byte, error) {
	if !common.IsHexAddress(address) {
		return nil, errors.WrapInvalidAddress(address)
	}
	account := common.HexToAddress(address)
	if code, ok := c.cache.Get(account); ok {
		return code, nil
	}

	var code []byte
	op := func() error {
		var err error
		code, err = c.backend.CodeAt(ctx, account, nil)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logger.Logger.Debug("eth_getCode failed, retrying", "address", address, "backoff", wait.String(), "error", err)
	}
	if err := backoff.RetryNotify(op, c.policy(ctx), notify); err != nil {
		return nil, fmt.Errorf("eth_getCode %s: %w", address, err)
	}

	if len(code) > 0 {
		c.cache.Add(account, code)
	}
	return code, nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.InitialBackoff
	eb.MaxInterval = c.cfg.MaxBackoff
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.Retries)), ctx)
}

// Close releases the node connection if the client dialed it.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}
