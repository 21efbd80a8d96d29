package claim_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/moraeszete/webhook-payments-integrations/core/db"
	"github.com/moraeszete/webhook-payments-integrations/internal/claim"
)

var _ = Describe("PostgresStore", func() {
	var (
		ctx      context.Context
		database *db.DB
		store    *claim.PostgresStore
		ns       string
	)

	BeforeEach(func() {
		dsn := os.Getenv("TEST_DATABASE_URL")
		if dsn == "" {
			Skip("TEST_DATABASE_URL not set")
		}
		ctx = context.Background()

		var err error
		database, err = db.New(ctx, db.Config{DSN: dsn, MaxConns: 40})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(database.Close)
		Expect(database.EnsureSchema(ctx)).To(Succeed())

		store = claim.NewPostgresStore(database.Queries())
		ns = "test-" + uuid.NewString()
		DeferCleanup(func() {
			_, err := store.PurgeRoute(context.Background(), ns, "/asaas")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	key := func(id string) claim.Key {
		return claim.Key(claim.RoutePrefix(ns, "/asaas") + claim.Separator + "eventId_" + id)
	}

	It("creates once and then reports already claimed", func() {
		res, err := store.Claim(ctx, key("1"), json.RawMessage(`{"id":"1"}`), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created()).To(BeTrue())

		res, err = store.Claim(ctx, key("1"), json.RawMessage(`{"id":"other"}`), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Outcome).To(Equal(claim.OutcomeAlreadyClaimed))

		c, ok, err := store.Get(ctx, key("1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(string(c.Payload)).To(MatchJSON(`{"id":"1"}`))
	})

	It("takes over an elapsed claim", func() {
		_, err := store.Claim(ctx, key("2"), nil, 10*time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		time.Sleep(50 * time.Millisecond)

		_, ok, err := store.Get(ctx, key("2"))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		res, err := store.Claim(ctx, key("2"), nil, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created()).To(BeTrue())
	})

	It("keeps a claim without ttl live", func() {
		_, err := store.Claim(ctx, key("3"), nil, 0)
		Expect(err).NotTo(HaveOccurred())

		c, ok, err := store.Get(ctx, key("3"))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(c.ExpiresAt.IsZero()).To(BeTrue())
	})

	It("grants exactly one claim to concurrent callers", func() {
		const callers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				res, err := store.Claim(ctx, key("race"), nil, time.Hour)
				Expect(err).NotTo(HaveOccurred())
				if res.Created() {
					mu.Lock()
					created++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		Expect(created).To(Equal(1))
	})

	It("sweeps only elapsed claims", func() {
		_, err := store.Claim(ctx, key("old"), nil, time.Millisecond)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.Claim(ctx, key("live"), nil, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		time.Sleep(20 * time.Millisecond)

		n, err := store.Sweep(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeNumerically(">=", 1))

		_, ok, err := store.Get(ctx, key("live"))
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("releases a single key and purges a route", func() {
		for _, id := range []string{"a", "b"} {
			_, err := store.Claim(ctx, key(id), nil, time.Hour)
			Expect(err).NotTo(HaveOccurred())
		}

		released, err := store.Release(ctx, key("a"))
		Expect(err).NotTo(HaveOccurred())
		Expect(released).To(BeTrue())

		n, err := store.PurgeRoute(ctx, ns, "asaas")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})

	It("answers readiness pings", func() {
		Expect(store.Ping(ctx)).To(Succeed())
	})
})
