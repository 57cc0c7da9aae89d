// Package snapshot publishes synchronized escrow lists to Redis so other
// processes can read the dashboard state without touching the chain.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"escrowboard/internal/escrow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrNotFound     = errors.New("snapshot not found")
	ErrDecodeFailed = errors.New("failed to decode snapshot")
)

// Snapshot is the msgpack form of one synchronized list. Amounts are decimal
// wei strings.
type Snapshot struct {
	Contract string   `msgpack:"contract"`
	SyncedAt int64    `msgpack:"synced_at"`
	Escrows  []Record `msgpack:"escrows"`
}

type Record struct {
	ID             uint64       `msgpack:"id"`
	Payer          string       `msgpack:"payer"`
	Payee          string       `msgpack:"payee"`
	TotalAmount    string       `msgpack:"total_amount"`
	Deadline       uint64       `msgpack:"deadline"`
	IsActive       bool         `msgpack:"is_active"`
	Completed      bool         `msgpack:"completed"`
	ReleasedAmount string       `msgpack:"released_amount"`
	Steps          []StepRecord `msgpack:"steps"`
}

type StepRecord struct {
	Amount   string `msgpack:"amount"`
	Approved bool   `msgpack:"approved"`
}

type Publisher struct {
	client   *redis.Client
	contract common.Address
	ttl      time.Duration
	now      func() time.Time
}

type Options struct {
	Client   *redis.Client
	Contract common.Address
	// TTL of the stored snapshot. Zero keeps it until the next publish.
	TTL time.Duration
}

func NewPublisher(opts Options) *Publisher {
	return &Publisher{
		client:   opts.Client,
		contract: opts.Contract,
		ttl:      opts.TTL,
		now:      time.Now,
	}
}

func (p *Publisher) key() string {
	return "escrowboard:" + p.contract.Hex() + ":escrows"
}

// Channel is where the escrow count of each publish is announced.
func (p *Publisher) Channel() string {
	return "escrowboard:" + p.contract.Hex() + ":synced"
}

// Publish stores the list and announces it. It has the session.SyncHook shape.
func (p *Publisher) Publish(ctx context.Context, escrows []escrow.Escrow) error {
	snap := Snapshot{
		Contract: p.contract.Hex(),
		SyncedAt: p.now().Unix(),
		Escrows:  make([]Record, 0, len(escrows)),
	}
	for _, e := range escrows {
		snap.Escrows = append(snap.Escrows, toRecord(e))
	}

	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, p.key(), data, p.ttl)
	pipe.Publish(ctx, p.Channel(), len(snap.Escrows))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Load returns the last published snapshot.
func (p *Publisher) Load(ctx context.Context) (Snapshot, error) {
	data, err := p.client.Get(ctx, p.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Join(ErrDecodeFailed, err)
	}
	return snap, nil
}

func toRecord(e escrow.Escrow) Record {
	r := Record{
		ID:             e.ID,
		Payer:          e.Payer.Hex(),
		Payee:          e.Payee.Hex(),
		TotalAmount:    decimal(e.TotalAmount),
		Deadline:       e.Deadline,
		IsActive:       e.IsActive,
		Completed:      e.Completed,
		ReleasedAmount: decimal(e.ReleasedAmount),
		Steps:          make([]StepRecord, len(e.Steps)),
	}
	for i, s := range e.Steps {
		r.Steps[i] = StepRecord{Amount: decimal(s.Amount), Approved: s.Approved}
	}
	return r
}

func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
