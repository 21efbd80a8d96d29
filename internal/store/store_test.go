package store_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/moraeszete/webhook-payments-integrations/common/id"
	"github.com/moraeszete/webhook-payments-integrations/core/db"
	"github.com/moraeszete/webhook-payments-integrations/internal/model"
	"github.com/moraeszete/webhook-payments-integrations/internal/store"
)

var errRollback = errors.New("rollback")

// inTx runs fn against stores bound to a transaction that is always rolled back.
func inTx(fn func(ctx context.Context, stores *store.Stores)) {
	ctx := context.Background()
	err := database.WithTx(ctx, func(q db.DBTX) error {
		fn(ctx, store.NewStores(q))
		return errRollback
	})
	Expect(err).To(MatchError(errRollback))
}

var _ = Describe("TokenStore", func() {
	BeforeEach(requireDatabase)

	It("creates, reads and rotates a token", func() {
		inTx(func(ctx context.Context, stores *store.Stores) {
			tokens := stores.Tokens()
			token := &model.AuthToken{ID: id.New(), TokenHash: "hash-1", Label: "asaas", Active: true}
			Expect(tokens.Create(ctx, token)).To(Succeed())
			Expect(token.CreatedAt).NotTo(BeZero())

			hash, err := tokens.GetHash(ctx, token.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hash).To(Equal("hash-1"))

			Expect(tokens.UpdateHash(ctx, token.ID, "hash-2")).To(Succeed())
			got, err := tokens.GetByID(ctx, token.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.TokenHash).To(Equal("hash-2"))
			Expect(got.RotatedAt).NotTo(BeNil())

			Expect(tokens.SetActive(ctx, token.ID, false)).To(Succeed())
			got, err = tokens.GetByID(ctx, token.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Active).To(BeFalse())

			list, err := tokens.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(ContainElement(HaveField("ID", token.ID)))
		})
	})

	It("reports unknown ids as not found", func() {
		inTx(func(ctx context.Context, stores *store.Stores) {
			tokens := stores.Tokens()
			_, err := tokens.GetHash(ctx, -1)
			Expect(err).To(MatchError(store.ErrNotFound))
			_, err = tokens.GetByID(ctx, -1)
			Expect(err).To(MatchError(store.ErrNotFound))
			Expect(tokens.UpdateHash(ctx, -1, "x")).To(MatchError(store.ErrNotFound))
			Expect(tokens.SetActive(ctx, -1, true)).To(MatchError(store.ErrNotFound))
		})
	})
})

var _ = Describe("QueuedEventStore", func() {
	BeforeEach(requireDatabase)

	It("inserts events and counts them by claim key", func() {
		inTx(func(ctx context.Context, stores *store.Stores) {
			events := stores.QueuedEvents()
			event := &model.QueuedEvent{
				ID:       id.New(),
				Provider: model.ProviderStripe,
				Queue:    "stripe_queue",
				ClaimKey: "webhook:path_stripe:eventId_evt_1",
				Payload:  json.RawMessage(`{"id":"evt_1"}`),
			}
			Expect(events.Insert(ctx, event)).To(Succeed())
			Expect(event.ProcessedAt).NotTo(BeZero())

			n, err := events.CountByClaimKey(ctx, event.ClaimKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))
		})
	})
})
