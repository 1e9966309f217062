package changefeed

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/textindex/pkg/redis"
)

type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(cfg config.KafkaConfig) (*KafkaSink, error) {
	p, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}
	return &KafkaSink{producer: p}, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, ev Event) error {
	return s.producer.Publish(ctx, kafka.Message{Key: ev.Key(), Value: ev})
}

func (s *KafkaSink) Ping(ctx context.Context) error { return s.producer.Ping(ctx) }

func (s *KafkaSink) Close() error { return s.producer.Close() }

type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(cfg config.RedisConfig) (*RedisSink, error) {
	c, err := redis.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisSink{client: c, channel: cfg.Channel}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	_, err = s.client.Publish(ctx, s.channel, payload)
	return err
}

func (s *RedisSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *RedisSink) Close() error { return s.client.Close() }

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// PostgresSink appends every event to an audit table.
type PostgresSink struct {
	client *postgres.Client
	table  string
}

func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig) (*PostgresSink, error) {
	if !tableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid postgres table name %q", cfg.Table)
	}
	c, err := postgres.New(cfg)
	if err != nil {
		return nil, err
	}
	s := &PostgresSink{client: c, table: cfg.Table}
	if err := s.ensureSchema(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id          BIGSERIAL PRIMARY KEY,
				event_type  TEXT NOT NULL,
				file        TEXT,
				payload     JSONB NOT NULL,
				occurred_at TIMESTAMPTZ NOT NULL
			)`, s.table)); err != nil {
			return fmt.Errorf("creating %s: %w", s.table, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_file_idx ON %s (file)`, s.table, s.table)); err != nil {
			return fmt.Errorf("indexing %s: %w", s.table, err)
		}
		return nil
	})
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Send(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	var file any
	if ev.File != "" {
		file = ev.File
	}
	_, err = s.client.DB.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (event_type, file, payload, occurred_at) VALUES ($1, $2, $3, $4)`, s.table),
		string(ev.Type), file, payload, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (s *PostgresSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *PostgresSink) Close() error { return s.client.Close() }

// FromConfig connects every enabled sink and returns a feed over them. If a
// sink cannot be reached the ones already opened are closed again.
func FromConfig(ctx context.Context, cfg config.ChangeFeedConfig, opts ...Option) (*Feed, error) {
	var sinks []Sink
	fail := func(err error) (*Feed, error) {
		for _, s := range sinks {
			if cerr := s.Close(); cerr != nil {
				slog.Warn("closing sink after setup failure", "sink", s.Name(), "error", cerr)
			}
		}
		return nil, err
	}

	if cfg.Kafka.Enabled {
		s, err := NewKafkaSink(cfg.Kafka)
		if err != nil {
			return fail(fmt.Errorf("kafka sink: %w", err))
		}
		sinks = append(sinks, s)
	}
	if cfg.Redis.Enabled {
		s, err := NewRedisSink(cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("redis sink: %w", err))
		}
		sinks = append(sinks, s)
	}
	if cfg.Postgres.Enabled {
		s, err := NewPostgresSink(ctx, cfg.Postgres)
		if err != nil {
			return fail(fmt.Errorf("postgres sink: %w", err))
		}
		sinks = append(sinks, s)
	}
	if len(sinks) == 0 {
		return nil, errors.New("change feed enabled but no sinks configured")
	}
	return New(sinks, cfg.BufferSize, opts...), nil
}
