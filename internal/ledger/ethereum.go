package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Registry contract names. Each holds one narrow audit concern.
const (
	messageHashRegistry       = "MessageHashRegistry"
	fileFingerprintRegistry   = "FileFingerprintRegistry"
	killedFingerprintRegistry = "KilledFingerprintRegistry"
	forwardTraceRegistry      = "ForwardTraceRegistry"
	leakEvidenceRegistry      = "LeakEvidenceRegistry"
)

var registryABIs = map[string]string{
	messageHashRegistry:       `[{"type":"function","name":"logMessageHash","stateMutability":"nonpayable","inputs":[{"name":"messageId","type":"bytes32"},{"name":"messageHash","type":"bytes32"}],"outputs":[]}]`,
	fileFingerprintRegistry:   `[{"type":"function","name":"registerFingerprint","stateMutability":"nonpayable","inputs":[{"name":"fingerprint","type":"bytes32"},{"name":"locationHint","type":"string"}],"outputs":[]}]`,
	killedFingerprintRegistry: `[{"type":"function","name":"killFingerprint","stateMutability":"nonpayable","inputs":[{"name":"fingerprint","type":"bytes32"}],"outputs":[]},{"type":"function","name":"isKilled","stateMutability":"view","inputs":[{"name":"fingerprint","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}]`,
	forwardTraceRegistry:      `[{"type":"function","name":"traceForward","stateMutability":"nonpayable","inputs":[{"name":"originalMessageId","type":"bytes32"},{"name":"forwardId","type":"bytes32"},{"name":"permissionGranted","type":"bool"}],"outputs":[]}]`,
	leakEvidenceRegistry:      `[{"type":"function","name":"reportLeak","stateMutability":"nonpayable","inputs":[{"name":"reportId","type":"bytes32"},{"name":"fingerprint","type":"bytes32"},{"name":"sourceUrl","type":"string"}],"outputs":[]}]`,
}

// EthereumConfig configures the on-chain adapter. Registries with an empty
// address are skipped; their events are silently dropped.
type EthereumConfig struct {
	RPCURL                        string
	SignerKey                     string
	ChainID                       int64
	MessageHashRegistryAddr       string
	FileFingerprintRegistryAddr   string
	KilledFingerprintRegistryAddr string
	ForwardTraceRegistryAddr      string
	LeakEvidenceRegistryAddr      string
}

// EthereumClient implements Client against registry contracts on an
// EVM chain (Polygon in production).
type EthereumClient struct {
	client    *ethclient.Client
	auth      *bind.TransactOpts
	contracts map[string]*bind.BoundContract

	// Serializes transactions so the keyed transactor's nonce lookups
	// never race each other.
	mu sync.Mutex
}

func NewEthereumClient(cfg EthereumConfig) (*EthereumClient, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ledger rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.SignerKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid ledger signer key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	addrs := map[string]string{
		messageHashRegistry:       cfg.MessageHashRegistryAddr,
		fileFingerprintRegistry:   cfg.FileFingerprintRegistryAddr,
		killedFingerprintRegistry: cfg.KilledFingerprintRegistryAddr,
		forwardTraceRegistry:      cfg.ForwardTraceRegistryAddr,
		leakEvidenceRegistry:      cfg.LeakEvidenceRegistryAddr,
	}

	contracts := make(map[string]*bind.BoundContract)
	for name, addr := range addrs {
		if addr == "" {
			continue
		}
		parsed, err := abi.JSON(strings.NewReader(registryABIs[name]))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s abi: %w", name, err)
		}
		contracts[name] = bind.NewBoundContract(common.HexToAddress(addr), parsed, client, client, client)
	}

	if len(contracts) == 0 {
		slog.Warn("ledger enabled but no registry addresses configured")
	}

	return &EthereumClient{
		client:    client,
		auth:      auth,
		contracts: contracts,
	}, nil
}

func (c *EthereumClient) RegisterFingerprint(ctx context.Context, fp, locationHint string) (string, error) {
	return c.transact(ctx, fileFingerprintRegistry, "registerFingerprint", toBytes32(fp), locationHint)
}

func (c *EthereumClient) KillFingerprint(ctx context.Context, fp string) (string, error) {
	return c.transact(ctx, killedFingerprintRegistry, "killFingerprint", toBytes32(fp))
}

func (c *EthereumClient) LogMessageHash(ctx context.Context, messageID, hash string) (string, error) {
	return c.transact(ctx, messageHashRegistry, "logMessageHash", toBytes32(messageID), toBytes32(hash))
}

func (c *EthereumClient) TraceForward(ctx context.Context, originalMessageID, forwardedMessageID string, granted bool) (string, error) {
	return c.transact(ctx, forwardTraceRegistry, "traceForward", toBytes32(originalMessageID), toBytes32(forwardedMessageID), granted)
}

func (c *EthereumClient) ReportLeak(ctx context.Context, reportID, fp, sourceURL string) (string, error) {
	if len(sourceURL) > 500 {
		sourceURL = sourceURL[:500]
	}
	return c.transact(ctx, leakEvidenceRegistry, "reportLeak", toBytes32(reportID), toBytes32(fp), sourceURL)
}

func (c *EthereumClient) IsFingerprintKilled(ctx context.Context, fp string) (bool, error) {
	contract := c.contracts[killedFingerprintRegistry]
	if contract == nil {
		return false, nil
	}

	var out []interface{}
	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "isKilled", toBytes32(fp))
	if err != nil || len(out) == 0 {
		return false, err
	}

	killed, _ := out[0].(bool)
	return killed, nil
}

// transact sends the event and waits for the receipt so the returned tx
// ref is final. Missing contracts drop the event without error.
func (c *EthereumClient) transact(ctx context.Context, name, method string, args ...interface{}) (string, error) {
	contract := c.contracts[name]
	if contract == nil {
		return "", nil
	}

	c.mu.Lock()
	opts := *c.auth
	opts.Context = ctx
	tx, err := contract.Transact(&opts, method, args...)
	c.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("%s.%s: %w", name, method, err)
	}

	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return "", fmt.Errorf("%s.%s wait: %w", name, method, err)
	}

	return receipt.TxHash.Hex(), nil
}

// toBytes32 left-pads the value into a contract word. Hex strings (uuids
// with dashes stripped, fingerprint digests) are decoded as hex; anything
// else is taken as raw bytes. Overlong input keeps the trailing 32 bytes.
func toBytes32(s string) [32]byte {
	s = strings.TrimPrefix(strings.ReplaceAll(s, "-", ""), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		b = []byte(s)
	}

	var out [32]byte
	if len(b) > 32 {
		b = b[len(b)-32:]
	}
	copy(out[32-len(b):], b)
	return out
}
