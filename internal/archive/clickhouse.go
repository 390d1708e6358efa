// Package archive fans detected signals out to long-term storage and live
// subscribers.
package archive

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
)

const signalsDDL = `
	CREATE TABLE IF NOT EXISTS signals (
		network            LowCardinality(String),
		pool_address       String,
		base               String,
		quote              String,
		market_cap         Nullable(Float64),
		bar_time           DateTime,
		close              Float64,
		volume             Float64,
		range_high_broken  Nullable(Float64),
		range_low_broken   Nullable(Float64),
		bullish_engulfing  Int32,
		bearish_engulfing  Int32,
		possible_duplicate Bool,
		detected_at        DateTime
	) ENGINE = MergeTree()
	ORDER BY (network, pool_address, bar_time)
`

type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

// ClickHouseStore appends every signal to the signals table.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, signalsDDL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create signals table: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("connected to ClickHouse")
	return &ClickHouseStore{conn: conn, logger: cfg.Logger}, nil
}

func (c *ClickHouseStore) Name() string { return "clickhouse" }

func (c *ClickHouseStore) Publish(ctx context.Context, sig *models.Signal) error {
	return c.InsertBatch(ctx, []*models.Signal{sig})
}

// InsertBatch writes signals in a single native batch.
func (c *ClickHouseStore) InsertBatch(ctx context.Context, sigs []*models.Signal) error {
	if len(sigs) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO signals")
	if err != nil {
		return fmt.Errorf("prepare signals batch: %w", err)
	}
	for _, s := range sigs {
		if err := batch.Append(
			string(s.Network),
			s.PoolAddress,
			s.Base,
			s.Quote,
			s.MarketCap,
			s.BarTime,
			s.Close,
			s.Volume,
			s.RangeHighBroken,
			s.RangeLowBroken,
			int32(s.BullishEngulfing),
			int32(s.BearishEngulfing),
			s.PossibleDuplicate,
			s.DetectedAt,
		); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append signal: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert signals: %w", err)
	}
	return nil
}

// CountSignals returns how many signals were archived for a network.
func (c *ClickHouseStore) CountSignals(ctx context.Context, network models.Network) (uint64, error) {
	var n uint64
	if err := c.conn.QueryRow(ctx, "SELECT count() FROM signals WHERE network = ?", string(network)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return n, nil
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
