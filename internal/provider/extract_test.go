package provider_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/moraeszete/webhook-payments-integrations/internal/model"
	"github.com/moraeszete/webhook-payments-integrations/internal/provider"
)

var _ = Describe("FieldExtractor", func() {
	extract := provider.FieldExtractor([]string{"event", "type"}, []string{"id"})

	It("reads top-level event and id", func() {
		id, err := extract(json.RawMessage(`{"event":"PAYMENT_RECEIVED","id":"evt_9","payment":{"id":"pay_1"}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(model.EventIdentity{EventType: "PAYMENT_RECEIVED", EventID: "evt_9"}))
	})

	It("falls back to later candidates", func() {
		id, err := extract(json.RawMessage(`{"event":"","type":"charge","id":"1"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(id.EventType).To(Equal("charge"))
	})

	It("uses numeric ids verbatim", func() {
		id, err := extract(json.RawMessage(`{"event":"X","id":12345}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(id.EventID).To(Equal("12345"))
	})

	It("ignores null and structured values", func() {
		id, err := extract(json.RawMessage(`{"event":null,"id":{"nested":true}}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(id.EventType).To(BeEmpty())
		Expect(id.EventID).To(BeEmpty())
	})

	It("rejects non-object payloads", func() {
		_, err := extract(json.RawMessage(`[1,2]`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("StripeExtractor", func() {
	It("reads type and id from the event envelope", func() {
		id, err := provider.StripeExtractor(json.RawMessage(`{
			"id": "evt_1NG8Du2eZvKYlo2CUI79vXWy",
			"object": "event",
			"type": "payment_intent.succeeded",
			"data": {"object": {"id": "pi_1", "object": "payment_intent"}}
		}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(id.EventType).To(Equal("payment_intent.succeeded"))
		Expect(id.EventID).To(Equal("evt_1NG8Du2eZvKYlo2CUI79vXWy"))
	})

	It("rejects payloads that are not JSON objects", func() {
		_, err := provider.StripeExtractor(json.RawMessage(`"event"`))
		Expect(err).To(HaveOccurred())
	})
})
