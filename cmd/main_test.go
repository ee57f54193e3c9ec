package main

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/okian/droprelay/internal/adapters/feed"
	service "github.com/okian/droprelay/internal/app"
	"github.com/okian/droprelay/internal/config"
	"github.com/okian/droprelay/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.FeedKind = config.FeedNone
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func TestBuildListener(t *testing.T) {
	convey.Convey("Given a loaded configuration", t, func() {
		cfg := testConfig()
		log := logger.Nop()

		convey.Convey("When the feed kind is none", func() {
			l, err := buildListener(cfg, log)

			convey.Convey("Then a noop listener should be used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(l.Name(), convey.ShouldEqual, "none")
			})
		})

		convey.Convey("When the feed kind is gateway", func() {
			cfg.FeedKind = config.FeedGateway
			cfg.FeedToken = "bot-token"
			l, err := buildListener(cfg, log)

			convey.Convey("Then a gateway listener should be built", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(l.Name(), convey.ShouldEqual, "gateway")
			})
		})

		convey.Convey("When the gateway has no token", func() {
			cfg.FeedKind = config.FeedGateway
			cfg.FeedToken = ""
			_, err := buildListener(cfg, log)

			convey.Convey("Then construction should fail", func() {
				convey.So(errors.Is(err, feed.ErrMissingToken), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the feed kind is kafka", func() {
			cfg.FeedKind = config.FeedKafka
			cfg.KafkaBrokers = []string{"localhost:9092"}
			cfg.KafkaTopic = "drops"
			l, err := buildListener(cfg, log)

			convey.Convey("Then a kafka listener should be built", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(l.Name(), convey.ShouldEqual, "kafka")
			})
		})

		convey.Convey("When the feed kind is unknown", func() {
			cfg.FeedKind = "carrier-pigeon"
			_, err := buildListener(cfg, log)

			convey.Convey("Then it should be rejected as invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a configuration with the memory store", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.CacheTTL = 3 * time.Second
		cfg.DedupeSize = 10

		convey.Convey("When building the service", func() {
			svc, err := buildService(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = svc.Stop(ctx) }()

			convey.Convey("Then it should carry the configured settings", func() {
				stats := svc.GetStats()
				convey.So(stats["store"], convey.ShouldEqual, "memory")
				convey.So(stats["feed"], convey.ShouldEqual, "none")
				convey.So(stats["ttlSeconds"], convey.ShouldEqual, 3.0)
				convey.So(stats["dedupeSize"], convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When the store url has an unknown scheme", func() {
			cfg.StoreURL = "ftp://nowhere"
			_, err := buildService(ctx, cfg, logger.Nop())

			convey.Convey("Then building should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a runnable configuration", t, func() {
		cfg := testConfig()

		convey.Convey("When the root context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Nop()) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run should shut down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(3 * time.Second):
					t.Fatal("run did not return after cancel")
				}
			})
		})

		convey.Convey("When the listen address is already taken", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = ln.Close() }()
			cfg.Addr = ln.Addr().String()
			err = run(context.Background(), cfg, logger.Nop())

			convey.Convey("Then the server error should be returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metric updaters", t, func() {
		svc, err := service.New()
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When they run until their context expires", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then they should return without panicking", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
				convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating once directly", func() {
			convey.Convey("Then nothing should panic", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given an address and handler", t, func() {
		srv := newHTTPServer(":9090", nil)

		convey.Convey("Then the server should use the relay timeouts", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":9090")
			convey.So(srv.ReadTimeout, convey.ShouldEqual, readTimeout)
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
			convey.So(srv.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
		})
	})
}
