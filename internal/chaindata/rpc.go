package chaindata

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ctrad/prescreen/internal/model"
)

// RPCProvider answers wallet transaction counts straight from a JSON-RPC
// node. It serves chains the node is connected to; the Gateway only
// consults it when the scan API fails.
type RPCProvider struct {
	client *ethclient.Client
	chain  model.Chain
}

// NewRPCProvider dials a JSON-RPC endpoint serving the given chain.
func NewRPCProvider(rawurl string, chain model.Chain) (*RPCProvider, error) {
	client, err := ethclient.Dial(rawurl)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rawurl, err)
	}
	return &RPCProvider{client: client, chain: chain}, nil
}

// Name identifies this provider in cache keys and metrics.
func (p *RPCProvider) Name() string { return "rpc" }

// WalletTxCount returns the account nonce at the latest block.
func (p *RPCProvider) WalletTxCount(ctx context.Context, chain model.Chain, addr string) (int64, error) {
	if chain != p.chain {
		return 0, fmt.Errorf("rpc node serves %s, not %s", p.chain, chain)
	}
	if !common.IsHexAddress(addr) {
		return 0, fmt.Errorf("not a hex address: %q", addr)
	}
	nonce, err := p.client.NonceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return 0, fmt.Errorf("nonce lookup: %w", err)
	}
	return int64(nonce), nil
}

// Close releases the underlying RPC connection.
func (p *RPCProvider) Close() { p.client.Close() }
