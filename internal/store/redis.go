package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyPayments   = "payments:processed"
	keyPaymentIDs = "payments:processed:ids"
)

// Redis keeps the ledger in a sorted set scored by the processing
// instant, with a companion id set enforcing correlation id uniqueness.
type Redis struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

func (r *Redis) Record(ctx context.Context, p ProcessedPayment) error {
	added, err := r.client.SAdd(ctx, keyPaymentIDs, p.CID).Result()
	if err != nil {
		return fmt.Errorf("marking payment id: %w", err)
	}
	if added == 0 {
		// Already recorded; at-least-once retry landed twice.
		return nil
	}

	member := encodePayment(p)

	err = r.client.ZAdd(ctx, keyPayments, redis.Z{
		Score:  float64(p.ProcessedAt.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("storing payment: %w", err)
	}

	return nil
}

func (r *Redis) Summarize(ctx context.Context, from, to *time.Time) (Summary, error) {
	min, max := "-inf", "+inf"
	if from != nil {
		min = strconv.FormatInt(from.UnixMilli(), 10)
	}
	if to != nil {
		max = strconv.FormatInt(to.UnixMilli(), 10)
	}

	members, err := r.client.ZRangeByScore(ctx, keyPayments, &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return Summary{}, fmt.Errorf("querying payments by range: %w", err)
	}

	var s Summary
	for _, member := range members {
		amount, processedBy, ok := decodePayment(member)
		if !ok {
			continue
		}

		switch processedBy {
		case "default":
			s.Default.TotalRequests++
			s.Default.TotalAmount = s.Default.TotalAmount.Add(amount)
		case "fallback":
			s.Fallback.TotalRequests++
			s.Fallback.TotalAmount = s.Fallback.TotalAmount.Add(amount)
		}
	}

	return roundRows(s), nil
}

func (r *Redis) Purge(ctx context.Context) error {
	if err := r.client.Del(ctx, keyPayments, keyPaymentIDs).Err(); err != nil {
		return fmt.Errorf("purging payments: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func encodePayment(p ProcessedPayment) string {
	var b strings.Builder
	b.WriteString(p.CID)
	b.WriteByte('|')
	b.WriteString(p.Amount.String())
	b.WriteByte('|')
	b.WriteString(p.ProcessedAt.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(p.ProcessedBy)
	return b.String()
}

func decodePayment(member string) (decimal.Decimal, string, bool) {
	parts := strings.SplitN(member, "|", 4)
	if len(parts) != 4 {
		return decimal.Zero, "", false
	}

	amount, err := decimal.NewFromString(parts[1])
	if err != nil {
		return decimal.Zero, "", false
	}

	return amount, parts[3], true
}
