package config_test

import (
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/moraeszete/webhook-payments-integrations/core/config"
)

var _ = Describe("Load", func() {
	setenv := func(key, value string) {
		prev, had := os.LookupEnv(key)
		Expect(os.Setenv(key, value)).To(Succeed())
		DeferCleanup(func() {
			if had {
				_ = os.Setenv(key, prev)
			} else {
				_ = os.Unsetenv(key)
			}
		})
	}

	BeforeEach(func() {
		// Keep .env files in the working tree out of the picture.
		setenv("APP_ENV", "test")
	})

	It("applies defaults", func() {
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Port).To(Equal("3000"))
		Expect(cfg.Claims.Backend).To(Equal(config.ClaimBackendRedis))
		Expect(cfg.Claims.Namespace).To(Equal("webhook"))
		Expect(cfg.Claims.TTL).To(Equal(24 * time.Hour))
		Expect(cfg.Queue.Backend).To(Equal(config.QueueBackendPostgres))
		Expect(cfg.HTTP.MaxBodyBytes).To(Equal(int64(10 << 20)))
		Expect(cfg.HTTP.CORSOrigins).To(Equal([]string{"*"}))
		Expect(cfg.UsesRedis()).To(BeTrue())
		Expect(cfg.OTel.Enabled()).To(BeFalse())
	})

	It("reads overrides from the environment", func() {
		setenv("CLAIM_BACKEND", "Postgres")
		setenv("CLAIM_TTL", "3600")
		setenv("CLAIM_NAMESPACE", "payments")
		setenv("CORS_ORIGINS", "https://a.example, https://b.example")
		setenv("DB_MAX_CONNS", "25")

		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Claims.Backend).To(Equal(config.ClaimBackendPostgres))
		Expect(cfg.Claims.TTL).To(Equal(time.Hour))
		Expect(cfg.Claims.Namespace).To(Equal("payments"))
		Expect(cfg.HTTP.CORSOrigins).To(Equal([]string{"https://a.example", "https://b.example"}))
		Expect(cfg.DB.MaxConns).To(Equal(int32(25)))
		Expect(cfg.UsesRedis()).To(BeFalse())
	})

	It("accepts go durations", func() {
		setenv("CLAIM_SWEEP_INTERVAL", "90s")
		cfg, err := config.Load(config.ServiceTypeServer)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Claims.SweepInterval).To(Equal(90 * time.Second))
	})

	DescribeTable("rejects invalid settings",
		func(key, value, message string) {
			setenv(key, value)
			_, err := config.Load(config.ServiceTypeServer)
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("unknown claim backend", "CLAIM_BACKEND", "mongo", "CLAIM_BACKEND"),
		Entry("unknown queue backend", "QUEUE_BACKEND", "kafka", "QUEUE_BACKEND"),
		Entry("blank namespace", "CLAIM_NAMESPACE", " ", "CLAIM_NAMESPACE"),
		Entry("zero ttl", "CLAIM_TTL", "0", "CLAIM_TTL"),
		Entry("empty dsn", "DATABASE_URL", "", "DATABASE_URL"),
	)
})
