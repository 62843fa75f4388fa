package chainrpc

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	chessgame_out "github.com/coffeechess/coordinator/pkg/domain/chessgame/ports/out"
	"github.com/coffeechess/coordinator/pkg/infra/metrics"
)

// EscrowRPCClient adapts a rotating list of JSON-RPC endpoints to the
// EscrowClient port: a view-call-oriented chain client built on
// go-ethereum's ethclient.
type EscrowRPCClient struct {
	endpoints       []string
	contractAddress common.Address
	current         int
}

func NewEscrowRPCClient(endpoints []string, contractAddress string) *EscrowRPCClient {
	return &EscrowRPCClient{
		endpoints:       endpoints,
		contractAddress: common.HexToAddress(contractAddress),
	}
}

func (c *EscrowRPCClient) dial(ctx context.Context) (*ethclient.Client, error) {
	if len(c.endpoints) == 0 {
		return nil, fmt.Errorf("no escrow RPC endpoints configured")
	}

	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		idx := (c.current + i) % len(c.endpoints)
		client, err := ethclient.DialContext(ctx, c.endpoints[idx])
		if err == nil {
			if idx != c.current {
				metrics.EscrowRPCFailoverTotal.Inc()
			}
			c.current = idx
			return client, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "escrow RPC endpoint unreachable, failing over",
			"endpoint", c.endpoints[idx], "err", err)
	}

	return nil, fmt.Errorf("all escrow RPC endpoints unreachable: %w", lastErr)
}

var (
	getGameInfoSelector   = crypto.Keccak256([]byte("getGameInfo(uint256)"))[:4]
	trustedSignerSelector = crypto.Keccak256([]byte("trustedSigner()"))[:4]
)

// GetGameInfo calls getGameInfo(uint256) and decodes the packed
// (address,address,uint256,uint256,uint256,uint8,address) tuple per
// spec §6's consumed surface.
func (c *EscrowRPCClient) GetGameInfo(ctx context.Context, gameID int64) (chessgame_out.GameInfo, error) {
	client, err := c.dial(ctx)
	if err != nil {
		return chessgame_out.GameInfo{}, err
	}
	defer client.Close()

	data := append(append([]byte{}, getGameInfoSelector...), common.LeftPadBytes(big.NewInt(gameID).Bytes(), 32)...)

	out, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contractAddress,
		Data: data,
	}, nil)
	if err != nil {
		// Transport error: start the next attempt from the next endpoint.
		c.current = (c.current + 1) % len(c.endpoints)
		metrics.EscrowRPCFailoverTotal.Inc()
		return chessgame_out.GameInfo{}, fmt.Errorf("getGameInfo call failed: %w", err)
	}

	if len(out) < 32*7 {
		return chessgame_out.GameInfo{}, fmt.Errorf("getGameInfo: unexpected return length %d", len(out))
	}

	word := func(i int) []byte { return out[i*32 : (i+1)*32] }

	return chessgame_out.GameInfo{
		Player1:        common.BytesToAddress(word(0)).Hex(),
		Player2:        common.BytesToAddress(word(1)).Hex(),
		StakePerPlayer: new(big.Int).SetBytes(word(2)).Int64(),
		TotalStaked:    new(big.Int).SetBytes(word(3)).Int64(),
		CreatedAt:      new(big.Int).SetBytes(word(4)).Int64(),
		Status:         word(5)[31],
		Winner:         common.BytesToAddress(word(6)).Hex(),
	}, nil
}

// TrustedSigner calls trustedSigner() and returns the contract's signer
// address. Nothing in the coordinator calls it, so no startup check
// compares it with the Verdict Signer's key.
func (c *EscrowRPCClient) TrustedSigner(ctx context.Context) (string, error) {
	client, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	out, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contractAddress,
		Data: trustedSignerSelector,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("trustedSigner call failed: %w", err)
	}
	if len(out) < 32 {
		return "", fmt.Errorf("trustedSigner: unexpected return length %d", len(out))
	}

	return common.BytesToAddress(out[:32]).Hex(), nil
}

var _ chessgame_out.EscrowClient = (*EscrowRPCClient)(nil)
