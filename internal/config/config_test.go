package config

import (
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("StoreConfig", func() {
	Describe("DefaultStoreConfig", func() {
		It("returns sane defaults", func() {
			c := DefaultStoreConfig()

			Expect(c.Host).To(Equal("localhost"))
			Expect(c.Port).To(Equal(5432))
			Expect(c.SSLMode).To(Equal("disable"))
			Expect(c.MaxOpenConns).To(Equal(25))
			Expect(c.LeaseTTL.Seconds()).To(Equal(120.0))
		})
	})

	Describe("LoadFromEnv", func() {
		var c *StoreConfig

		BeforeEach(func() {
			c = DefaultStoreConfig()
		})

		AfterEach(func() {
			os.Unsetenv("DB_HOST")
			os.Unsetenv("DB_PORT")
		})

		It("overrides values present in the environment", func() {
			os.Setenv("DB_HOST", "db.internal")
			os.Setenv("DB_PORT", "6543")

			c.LoadFromEnv()

			Expect(c.Host).To(Equal("db.internal"))
			Expect(c.Port).To(Equal(6543))
		})

		It("keeps defaults when DB_PORT is not a valid integer", func() {
			os.Setenv("DB_PORT", "not-a-number")
			original := c.Port

			c.LoadFromEnv()

			Expect(c.Port).To(Equal(original))
		})
	})

	Describe("Validate", func() {
		It("rejects an empty host", func() {
			c := DefaultStoreConfig()
			c.Host = ""
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("rejects an out-of-range port", func() {
			c := DefaultStoreConfig()
			c.Port = 99999
			Expect(c.Validate()).To(HaveOccurred())
		})

		It("accepts the defaults", func() {
			Expect(DefaultStoreConfig().Validate()).ToNot(HaveOccurred())
		})
	})
})

var _ = Describe("MatcherConfig", func() {
	It("validates that hybrid weights sum to one", func() {
		c := DefaultMatcherConfig()
		Expect(c.Validate()).ToNot(HaveOccurred())

		c.WeightSemantic = 0.9
		Expect(c.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("LLMConfig", func() {
	It("rejects a non-positive timeout", func() {
		c := DefaultLLMConfig()
		c.Timeout = 0
		Expect(c.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Config", func() {
	Describe("DefaultConfig", func() {
		It("validates cleanly out of the box", func() {
			Expect(DefaultConfig().Validate()).ToNot(HaveOccurred())
		})
	})

	Describe("LoadOverridesFromFile", func() {
		It("is a no-op when the file does not exist", func() {
			c := DefaultConfig()
			Expect(c.LoadOverridesFromFile("/no/such/override.yaml")).To(Succeed())
			Expect(c.Store.Host).To(Equal("localhost"))
		})

		It("replaces only the sections named in the file", func() {
			dir, err := os.MkdirTemp("", "config-override-*")
			Expect(err).ToNot(HaveOccurred())
			defer os.RemoveAll(dir)

			path := dir + "/override.yaml"
			Expect(os.WriteFile(path, []byte("store:\n  host: db.internal\n  port: 6543\n"), 0o644)).To(Succeed())

			c := DefaultConfig()
			Expect(c.LoadOverridesFromFile(path)).To(Succeed())

			Expect(c.Store.Host).To(Equal("db.internal"))
			Expect(c.Store.Port).To(Equal(6543))
			Expect(c.Catalog.Directory).To(Equal("./tieups"))
		})

		It("rejects malformed YAML", func() {
			dir, err := os.MkdirTemp("", "config-override-*")
			Expect(err).ToNot(HaveOccurred())
			defer os.RemoveAll(dir)

			path := dir + "/override.yaml"
			Expect(os.WriteFile(path, []byte("not: [valid"), 0o644)).To(Succeed())

			c := DefaultConfig()
			Expect(c.LoadOverridesFromFile(path)).To(HaveOccurred())
		})
	})
})
