package queue_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
	"github.com/moraeszete/webhook-payments-integrations/internal/queue"
)

type fakeQueuedEventStore struct {
	insertFn func(ctx context.Context, event *model.QueuedEvent) error
	rows     []model.QueuedEvent
}

func (f *fakeQueuedEventStore) Insert(ctx context.Context, event *model.QueuedEvent) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, event)
	}
	event.ProcessedAt = time.Now()
	f.rows = append(f.rows, *event)
	return nil
}

func (f *fakeQueuedEventStore) CountByClaimKey(_ context.Context, claimKey string) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.ClaimKey == claimKey {
			n++
		}
	}
	return n, nil
}

func newEvent() *model.QueuedEvent {
	return &model.QueuedEvent{
		Provider: model.ProviderAsaas,
		Queue:    "asaas_queue",
		ClaimKey: "webhook:path_asaas:eventId_1",
		Payload:  json.RawMessage(`{"id":"1"}`),
	}
}

var _ = Describe("PostgresWriter", func() {
	var (
		ctx    context.Context
		events *fakeQueuedEventStore
		writer queue.Writer
	)

	BeforeEach(func() {
		ctx = context.Background()
		events = &fakeQueuedEventStore{}
		writer = queue.NewPostgresWriter(events)
	})

	It("assigns an id and inserts the event", func() {
		event := newEvent()
		Expect(writer.Write(ctx, event)).To(Succeed())
		Expect(event.ID).NotTo(BeZero())

		n, err := events.CountByClaimKey(ctx, event.ClaimKey)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
		Expect(writer.Backend()).To(Equal("postgres"))
	})

	It("refuses an empty payload", func() {
		event := newEvent()
		event.Payload = nil
		Expect(writer.Write(ctx, event)).To(MatchError(queue.ErrEmptyPayload))
		Expect(events.rows).To(BeEmpty())
	})

	It("wraps insert failures", func() {
		boom := errors.New("boom")
		events.insertFn = func(context.Context, *model.QueuedEvent) error { return boom }
		Expect(writer.Write(ctx, newEvent())).To(MatchError(boom))
	})
})

var _ = Describe("RedisWriter", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		writer queue.Writer
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		writer = queue.NewRedisWriter(client, "webhook", nil)
	})

	It("appends the event to the queue's stream", func() {
		event := newEvent()
		Expect(writer.Write(ctx, event)).To(Succeed())
		Expect(event.ProcessedAt).NotTo(BeZero())

		entries, err := mr.Stream("webhook:asaas_queue")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))

		values := map[string]string{}
		for i := 0; i+1 < len(entries[0].Values); i += 2 {
			values[entries[0].Values[i]] = entries[0].Values[i+1]
		}
		Expect(values).To(HaveKeyWithValue("id", strconv.FormatInt(event.ID, 10)))
		Expect(values).To(HaveKeyWithValue("claim_key", event.ClaimKey))
		Expect(values).To(HaveKeyWithValue("payload", `{"id":"1"}`))
		Expect(values).To(HaveKeyWithValue("provider", "asaas"))
		Expect(writer.Backend()).To(Equal("redis"))
	})
})
