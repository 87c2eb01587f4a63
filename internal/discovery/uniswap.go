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

// Package discovery finds candidate token contracts to audit.
package discovery

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// UniswapV2Factory is the mainnet Uniswap V2 factory.
const UniswapV2Factory = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"

// DefaultExcludedSymbols are majors that are never worth auditing.
var DefaultExcludedSymbols = []string{"WETH", "USDC", "USDT", "DAI", "WBTC"}

const (
	factoryABI = `[
		{"inputs":[],"name":"allPairsLength","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
		{"inputs":[{"name":"","type":"uint256"}],"name":"allPairs","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
	]`
	pairABI = `[
		{"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
		{"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
	]`
	erc20ABI = `[
		{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"}
	]`
	// Some early tokens (MKR, SAI) return symbol() as bytes32.
	erc20Bytes32ABI = `[
		{"inputs":[],"name":"symbol","outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}
	]`
)

var (
	factoryContract = mustParse(factoryABI)
	pairContract    = mustParse(pairABI)
	erc20Contract   = mustParse(erc20ABI)
	erc20Bytes32    = mustParse(erc20Bytes32ABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// Config configures UniswapV2 discovery.
type Config struct {
	Factory         string
	ExcludedSymbols []string
	// MaxPairs bounds how many pairs one Discover call walks.
	MaxPairs int
}

// UniswapV2 walks the factory's pair list from newest to oldest and collects
// the tokens of each pair.
type UniswapV2 struct {
	caller   ethereum.ContractCaller
	factory  common.Address
	excluded map[string]struct{}
	maxPairs int
}

func NewUniswapV2(caller ethereum.ContractCaller, cfg Config) (*UniswapV2, error) {
	if cfg.Factory == "" {
		cfg.Factory = UniswapV2Factory
	}
	if !common.IsHexAddress(cfg.Factory) {
		return nil, fmt.Errorf("invalid factory address %q", cfg.Factory)
	}
	if cfg.ExcludedSymbols == nil {
		cfg.ExcludedSymbols = DefaultExcludedSymbols
	}
	if cfg.MaxPairs <= 0 {
		cfg.MaxPairs = 200
	}
	u := &UniswapV2{
		caller:   caller,
		factory:  common.HexToAddress(cfg.Factory),
		excluded: make(map[string]struct{}, len(cfg.ExcludedSymbols)),
		maxPairs: cfg.MaxPairs,
	}
	for _, s := range cfg.ExcludedSymbols {
		u.excluded[strings.ToUpper(s)] = struct{}{}
	}
	return u, nil
}

// Discover returns up to limit unique lowercase token addresses, newest pairs
// first. Pairs whose token or symbol calls fail are skipped.
func (u *UniswapV2) Discover(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return []string{}, nil
	}
	out, err := u.call(ctx, u.factory, factoryContract, "allPairsLength")
	if err != nil {
		return nil, fmt.Errorf("allPairsLength: %w", err)
	}
	total, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("allPairsLength: unexpected result %T", out[0])
	}

	seen := make(map[string]struct{})
	tokens := make([]string, 0, limit)
	walked := 0
	for i := new(big.Int).Sub(total, big.NewInt(1)); i.Sign() >= 0 && len(tokens) < limit && walked < u.maxPairs; i.Sub(i, big.NewInt(1)) {
		if err := ctx.Err(); err != nil {
			return tokens, err
		}
		walked++

		pair, err := u.pairTokens(ctx, new(big.Int).Set(i))
		if err != nil {
			logger.Logger.Debug("Skipping pair", "index", i.String(), "error", err)
			continue
		}
		for _, tok := range pair {
			if len(tokens) >= limit {
				break
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			tokens = append(tokens, tok)
		}
	}
	return tokens, nil
}

// pairTokens returns the non-excluded tokens of the pair at index.
func (u *UniswapV2) pairTokens(ctx context.Context, index *big.Int) ([]string, error) {
	out, err := u.call(ctx, u.factory, factoryContract, "allPairs", index)
	if err != nil {
		return nil, err
	}
	pair, ok := out[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("allPairs: unexpected result %T", out[0])
	}

	var token0, token1 common.Address
	var symbol0, symbol1 string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		token0, symbol0, err = u.token(gctx, pair, "token0")
		return err
	})
	g.Go(func() (err error) {
		token1, symbol1, err = u.token(gctx, pair, "token1")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var keep []string
	if !u.isExcluded(symbol0) {
		keep = append(keep, strings.ToLower(token0.Hex()))
	}
	if !u.isExcluded(symbol1) {
		keep = append(keep, strings.ToLower(token1.Hex()))
	}
	return keep, nil
}

func (u *UniswapV2) token(ctx context.Context, pair common.Address, method string) (common.Address, string, error) {
	out, err := u.call(ctx, pair, pairContract, method)
	if err != nil {
		return common.Address{}, "", err
	}
	tok, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, "", fmt.Errorf("%s: unexpected result %T", method, out[0])
	}
	symbol, err := u.symbol(ctx, tok)
	if err != nil {
		return common.Address{}, "", err
	}
	return tok, symbol, nil
}

func (u *UniswapV2) symbol(ctx context.Context, token common.Address) (string, error) {
	raw, err := u.rawCall(ctx, token, erc20Contract, "symbol")
	if err != nil {
		return "", err
	}
	if out, err := erc20Contract.Unpack("symbol", raw); err == nil {
		if s, ok := out[0].(string); ok {
			return s, nil
		}
	}
	out, err := erc20Bytes32.Unpack("symbol", raw)
	if err != nil {
		return "", fmt.Errorf("symbol: %w", err)
	}
	b, ok := out[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("symbol: unexpected result %T", out[0])
	}
	return string(bytes.TrimRight(b[:], "\x00")), nil
}

func (u *UniswapV2) isExcluded(symbol string) bool {
	_, ok := u.excluded[strings.ToUpper(symbol)]
	return ok
}

func (u *UniswapV2) rawCall(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	return u.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

func (u *UniswapV2) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	raw, err := u.rawCall(ctx, to, contract, method, args...)
	if err != nil {
		return nil, err
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}
