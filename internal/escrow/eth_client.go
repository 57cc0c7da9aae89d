package escrow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"escrowboard/internal/contracts"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

const defaultReceiptPoll = 2 * time.Second

// EthClient reads and writes the escrow factory over JSON-RPC.
type EthClient struct {
	client      *ethclient.Client
	contract    *bind.BoundContract
	abi         abi.ABI
	address     common.Address
	chainID     *big.Int
	signer      Signer
	receiptPoll time.Duration
}

type EthClientConfig struct {
	RPCURL          string
	ContractAddress string
	Signer          Signer
	ReceiptPoll     time.Duration
}

func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid escrow contract address %q", cfg.ContractAddress)
	}
	if cfg.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contracts.EscrowABI))
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	poll := cfg.ReceiptPoll
	if poll <= 0 {
		poll = defaultReceiptPoll
	}

	address := common.HexToAddress(cfg.ContractAddress)
	return &EthClient{
		client:      cli,
		contract:    bind.NewBoundContract(address, parsedABI, cli, cli, cli),
		abi:         parsedABI,
		address:     address,
		chainID:     chainID,
		signer:      cfg.Signer,
		receiptPoll: poll,
	}, nil
}

func (c *EthClient) Close() {
	c.client.Close()
}

func (c *EthClient) Address() common.Address {
	return c.address
}

func (c *EthClient) EscrowCount(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "escrowCount"); err != nil {
		return 0, fmt.Errorf("escrowCount: %w", err)
	}
	return decodeCount(out)
}

func (c *EthClient) Escrow(ctx context.Context, id uint64) (Escrow, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "escrows", new(big.Int).SetUint64(id)); err != nil {
		return Escrow{}, fmt.Errorf("escrows(%d): %w", id, err)
	}
	return decodeEscrow(id, out)
}

func (c *EthClient) EscrowSteps(ctx context.Context, id uint64) ([]Step, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getEscrowSteps", new(big.Int).SetUint64(id)); err != nil {
		return nil, fmt.Errorf("getEscrowSteps(%d): %w", id, err)
	}
	return decodeSteps(id, out)
}

func (c *EthClient) EstimateGas(ctx context.Context, req TxRequest) (uint64, error) {
	data, err := c.abi.Pack(req.Call.Method, req.Call.Args...)
	if err != nil {
		return 0, fmt.Errorf("pack %s: %w", req.Call.Method, err)
	}
	gas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  req.From,
		To:    &c.address,
		Value: req.Value,
		Data:  data,
	})
	if err != nil {
		return 0, fmt.Errorf("estimate %s: %w", req.Call.Method, err)
	}
	return gas, nil
}

// Send signs and submits the call, then blocks until it is mined.
func (c *EthClient) Send(ctx context.Context, req TxRequest) (string, error) {
	opts, err := c.signer.Transactor(req.From, c.chainID)
	if err != nil {
		return "", fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	opts.Value = req.Value
	opts.GasLimit = req.GasLimit

	tx, err := c.contract.Transact(opts, req.Call.Method, req.Call.Args...)
	if err != nil {
		return "", fmt.Errorf("%s tx: %w", req.Call.Method, err)
	}

	receipt, err := WaitForReceipt(ctx, c.client, tx.Hash(), c.receiptPoll)
	if err != nil {
		return "", fmt.Errorf("%s receipt: %w", req.Call.Method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%s %s: %w", req.Call.Method, tx.Hash().Hex(), ErrReverted)
	}
	return tx.Hash().Hex(), nil
}

func (c *EthClient) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := c.client.BlockNumber(ctx)
	return err
}

// ReceiptReader is the part of ethclient WaitForReceipt needs.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// WaitForReceipt polls until the transaction is mined or context cancelled.
func WaitForReceipt(ctx context.Context, client ReceiptReader, hash common.Hash, every time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
