package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/routing-proxy/config"
)

const validConfig = `
server:
  address: ":9090"
  environment: "prod"

health_check:
  interval: "10s"
  timeout: "1s"
  path: "/healthz"

proxy:
  timeout: "4s"

routing:
  policy: "least-connections"

backends:
  - name: "VideoA"
    url: "http://localhost:6001"
    affinity: "video"
    color: "#FF0000"
  - name: "General"
    url: "http://localhost:6002"
    affinity: "general"

logging:
  level: "debug"
`

var _ = Describe("Config", func() {
	var tempDir string

	writeConfig := func(content string) string {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Unsetenv("ROUTING_POLICY")
	})

	Describe("Load", func() {
		Context("with valid config file", func() {
			It("should load configuration successfully", func() {
				cfg, err := config.Load("--config", writeConfig(validConfig))
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Server.Address).To(Equal(":9090"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvProd))
				Expect(cfg.Routing.Policy).To(Equal("least-connections"))
				Expect(cfg.HealthCheck.Path).To(Equal("/healthz"))
				Expect(cfg.HealthCheckInterval()).To(Equal(10 * time.Second))
				Expect(cfg.HealthCheckTimeout()).To(Equal(time.Second))
				Expect(cfg.ProxyTimeout()).To(Equal(4 * time.Second))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
			})

			It("should parse backends in declaration order", func() {
				cfg, err := config.Load("--config", writeConfig(validConfig))
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Backends).To(Equal([]config.BackendConfig{
					{Name: "VideoA", URL: "http://localhost:6001", Affinity: "video", Color: "#FF0000"},
					{Name: "General", URL: "http://localhost:6002", Affinity: "general"},
				}))
			})

			It("should let flags override the file", func() {
				cfg, err := config.Load("--config", writeConfig(validConfig), "--policy", "file-size", "--address", "127.0.0.1:7000")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Routing.Policy).To(Equal("file-size"))
				Expect(cfg.Server.Address).To(Equal("127.0.0.1:7000"))
			})
		})

		Context("without a config file", func() {
			It("should use the defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Server.Address).To(Equal(":8080"))
				Expect(cfg.Routing.Policy).To(Equal("content-based"))
				Expect(cfg.HealthCheckInterval()).To(Equal(5 * time.Second))
				Expect(cfg.HealthCheckTimeout()).To(Equal(3 * time.Second))
				Expect(cfg.ProxyTimeout()).To(Equal(10 * time.Second))
				Expect(cfg.Dashboard.Enabled).To(BeTrue())
				Expect(cfg.Backends).To(HaveLen(3))
				Expect(cfg.Backends[0].Name).To(Equal("ServerA"))
				Expect(cfg.Backends[0].Affinity).To(Equal("video"))
				Expect(cfg.Backends[2].URL).To(Equal("http://localhost:5003"))
			})

			It("should read environment variables", func() {
				os.Setenv("ROUTING_POLICY", "round-robin")
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Routing.Policy).To(Equal("round-robin"))
			})
		})

		Context("with invalid values", func() {
			It("should reject an unknown policy flag", func() {
				_, err := config.Load("--policy", "random")
				Expect(err).To(HaveOccurred())
			})

			It("should reject an unknown flag", func() {
				_, err := config.Load("--nope")
				Expect(err).To(HaveOccurred())
			})

			It("should fail on a missing explicit config file", func() {
				_, err := config.Load("--config", filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Server:      config.ServerConfig{Address: ":8080", Environment: config.EnvDev},
				HealthCheck: config.HealthCheckConfig{Interval: "5s", Timeout: "3s", Path: "/health"},
				Proxy:       config.ProxyConfig{Timeout: "10s"},
				Routing:     config.RoutingConfig{Policy: "content-based"},
				Backends: []config.BackendConfig{
					{Name: "ServerA", URL: "http://localhost:5001", Affinity: "video"},
				},
				Logging: config.LoggingConfig{Level: config.LogLevelInfo},
			}
		})

		It("should accept a valid config", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		DescribeTable("should reject",
			func(mutate func(*config.Config)) {
				mutate(cfg)
				Expect(cfg.Validate()).NotTo(Succeed())
			},
			Entry("unknown environment", func(c *config.Config) { c.Server.Environment = "qa" }),
			Entry("bad address", func(c *config.Config) { c.Server.Address = "nope" }),
			Entry("bad interval", func(c *config.Config) { c.HealthCheck.Interval = "soon" }),
			Entry("zero timeout", func(c *config.Config) { c.HealthCheck.Timeout = "0s" }),
			Entry("relative health path", func(c *config.Config) { c.HealthCheck.Path = "health" }),
			Entry("bad proxy timeout", func(c *config.Config) { c.Proxy.Timeout = "" }),
			Entry("unknown policy", func(c *config.Config) { c.Routing.Policy = "weighted" }),
			Entry("unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }),
			Entry("no backends", func(c *config.Config) { c.Backends = nil }),
			Entry("backend without name", func(c *config.Config) { c.Backends[0].Name = "" }),
			Entry("backend with unknown affinity", func(c *config.Config) { c.Backends[0].Affinity = "audio" }),
			Entry("backend with ftp url", func(c *config.Config) { c.Backends[0].URL = "ftp://localhost" }),
			Entry("duplicate backend names", func(c *config.Config) {
				c.Backends = append(c.Backends, config.BackendConfig{Name: "ServerA", URL: "http://localhost:5002", Affinity: "api"})
			}),
		)
	})
})
