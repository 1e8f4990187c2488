package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
)

type fakeSource struct {
	quantities map[uuid.UUID]int64
	asked      [][]uuid.UUID
	err        error
}

func (f *fakeSource) Quantities(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	f.asked = append(f.asked, ids)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uuid.UUID]int64)
	for _, id := range ids {
		if q, ok := f.quantities[id]; ok {
			out[id] = q
		}
	}
	return out, nil
}

func setup(t *testing.T, source *fakeSource) (*StockCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), mr.Addr(), "")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewStockCache(client, time.Minute, source), mr
}

func TestStockChangedWritesThrough(t *testing.T) {
	c, mr := setup(t, &fakeSource{})
	org, product := uuid.New(), uuid.New()

	c.StockChanged(context.Background(), org, product, 12)

	got, err := mr.Get(stockKey(org, product))
	if err != nil || got != "12" {
		t.Fatalf("expected 12 in redis, got %q (%v)", got, err)
	}
	if ttl := mr.TTL(stockKey(org, product)); ttl != time.Minute {
		t.Fatalf("expected one minute ttl, got %v", ttl)
	}
}

func TestQuantitiesLoadsMissesOnce(t *testing.T) {
	org := uuid.New()
	cached, missing, unknown := uuid.New(), uuid.New(), uuid.New()
	source := &fakeSource{quantities: map[uuid.UUID]int64{missing: 4}}
	c, mr := setup(t, source)
	mr.Set(stockKey(org, cached), strconv.Itoa(9))

	got, err := c.Quantities(context.Background(), org, []uuid.UUID{cached, missing, unknown})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[cached] != 9 || got[missing] != 4 {
		t.Fatalf("unexpected quantities %v", got)
	}
	if len(source.asked) != 1 || len(source.asked[0]) != 2 {
		t.Fatalf("expected one fallback call for two misses, got %v", source.asked)
	}
	if v, _ := mr.Get(stockKey(org, missing)); v != "4" {
		t.Fatalf("miss was not cached, got %q", v)
	}

	if _, err := c.Quantities(context.Background(), org, []uuid.UUID{cached, missing}); err != nil {
		t.Fatal(err)
	}
	if len(source.asked) != 1 {
		t.Fatalf("second read should be served from redis")
	}
}

func TestQuantitiesFallsBackWhenRedisIsDown(t *testing.T) {
	org, product := uuid.New(), uuid.New()
	source := &fakeSource{quantities: map[uuid.UUID]int64{product: 3}}
	c, mr := setup(t, source)
	mr.Close()

	got, err := c.Quantities(context.Background(), org, []uuid.UUID{product})
	if err != nil {
		t.Fatal(err)
	}
	if got[product] != 3 {
		t.Fatalf("expected ledger quantity, got %v", got)
	}
}

func TestQuantitiesPropagatesSourceError(t *testing.T) {
	source := &fakeSource{err: errors.New("db down")}
	c, _ := setup(t, source)

	if _, err := c.Quantities(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDialRejectsEmptyAddress(t *testing.T) {
	if _, err := Dial(context.Background(), "", ""); err == nil {
		t.Fatal("expected an error for an empty address")
	}
}

func TestStockChangedIgnoresCallerCancellation(t *testing.T) {
	c, mr := setup(t, &fakeSource{})
	org, product := uuid.New(), uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.StockChanged(context.WithoutCancel(ctx), org, product, 3)

	if got, err := mr.Get(stockKey(org, product)); err != nil || got != "3" {
		t.Fatalf("expected 3 in redis, got %q (%v)", got, err)
	}
}
