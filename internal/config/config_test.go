package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/droprelay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.CacheTTL, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 1000)
			convey.So(cfg.StoreURL, convey.ShouldEqual, "")
			convey.So(cfg.FeedKind, convey.ShouldEqual, config.FeedGateway)
			convey.So(cfg.FeedChannelID, convey.ShouldEqual, "1401775181025775738")
			convey.So(cfg.ServiceName, convey.ShouldEqual, "Cloudy Sniper API")
			convey.So(cfg.CORSAllowOrigin, convey.ShouldEqual, "*")
		})

		convey.Convey("Then the defaults alone should not validate without a token", func() {
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		valid := func() *config.Config {
			c := config.New()
			c.FeedToken = "token"
			return c
		}
		convey.So(valid().Validate(), convey.ShouldBeNil)

		cases := map[string]func(c *config.Config){
			"empty addr":       func(c *config.Config) { c.Addr = " " },
			"zero ttl":         func(c *config.Config) { c.CacheTTL = 0 },
			"negative dedupe":  func(c *config.Config) { c.DedupeSize = -1 },
			"unknown feed":     func(c *config.Config) { c.FeedKind = "irc" },
			"kafka, no topic":  func(c *config.Config) { c.FeedKind = config.FeedKafka; c.KafkaTopic = "" },
			"gateway no token": func(c *config.Config) { c.FeedToken = "" },
		}
		for name, mutate := range cases {
			convey.Convey("When it has "+name, func() {
				c := valid()
				mutate(c)
				convey.So(errors.Is(c.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("When the feed is disabled", func() {
			c := valid()
			c.FeedKind = config.FeedNone
			c.FeedToken = ""
			convey.So(c.Validate(), convey.ShouldBeNil)
		})
	})
}
