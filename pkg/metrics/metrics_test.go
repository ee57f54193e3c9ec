package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "droprelay")
				So(manager.subsystem, ShouldEqual, "relay")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})

			Convey("And the collectors should be registered under the namespace", func() {
				manager.dropsAccepted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_namespace_test_subsystem_drops_accepted_total")
			})
		})

		Convey("When empty options are passed", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "droprelay")
				So(manager.subsystem, ShouldEqual, "relay")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestIngestionMetrics(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording feed records", func() {
			before := testutil.ToFloat64(globalManager.recordsReceived)
			RecordRecordReceived()
			RecordRecordReceived()

			Convey("Then the received counter should advance", func() {
				So(testutil.ToFloat64(globalManager.recordsReceived)-before, ShouldEqual, 2)
			})
		})

		Convey("When recording discarded records", func() {
			before := testutil.ToFloat64(globalManager.recordsDiscarded.WithLabelValues("missing_job_id"))
			RecordRecordDiscarded("missing_job_id")

			Convey("Then the labelled counter should advance", func() {
				after := testutil.ToFloat64(globalManager.recordsDiscarded.WithLabelValues("missing_job_id"))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording an accepted drop", func() {
			before := testutil.ToFloat64(globalManager.dropsAccepted)
			RecordDropAccepted(523)

			Convey("Then the counter and last money gauge should update", func() {
				So(testutil.ToFloat64(globalManager.dropsAccepted)-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.dropMoneyPerSec), ShouldEqual, 523)
			})
		})

		Convey("When recording duplicates and dedupe size", func() {
			before := testutil.ToFloat64(globalManager.dropsDuplicate)
			RecordDropDuplicate()
			UpdateDedupeSize(42)

			Convey("Then both should be visible", func() {
				So(testutil.ToFloat64(globalManager.dropsDuplicate)-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.dedupeSize), ShouldEqual, 42)
			})
		})

		Convey("When recording manual updates", func() {
			So(func() {
				RecordManualUpdate("ok")
				RecordManualUpdate("invalid")
				RecordManualUpdate("failed")
			}, ShouldNotPanic)
		})
	})
}

func TestCacheAndFeedMetrics(t *testing.T) {
	Convey("Given cache and feed recorders", t, func() {
		Convey("When the feed state changes", func() {
			UpdateFeedState("connecting")
			UpdateFeedState("connected")

			Convey("Then only the current state should be set", func() {
				So(testutil.ToFloat64(globalManager.feedState.WithLabelValues("connected")), ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.feedState.WithLabelValues("connecting")), ShouldEqual, 0)
				So(testutil.ToFloat64(globalManager.feedState.WithLabelValues("error")), ShouldEqual, 0)
			})
		})

		Convey("When recording cache reads and store activity", func() {
			before := testutil.ToFloat64(globalManager.cacheReads.WithLabelValues("fresh"))
			RecordCacheRead("fresh")

			So(func() {
				RecordStoreError("redis", "write")
				RecordStoreLatency("memory", "read", 0.01)
				UpdateLastDropTimestamp(1_700_000_000)
				RecordFeedReconnect()
			}, ShouldNotPanic)

			Convey("Then the read counter should advance", func() {
				So(testutil.ToFloat64(globalManager.cacheReads.WithLabelValues("fresh"))-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.lastDropTimestamp), ShouldEqual, 1_700_000_000)
			})
		})
	})
}

func TestHTTPAndSystemMetrics(t *testing.T) {
	Convey("Given HTTP and system recorders", t, func() {
		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("latest", "GET", "200")
				RecordHTTPRequestDuration("latest", "GET", "200", 1.5)
				RecordErrorByEndpoint("update", "POST", "client_error")
				RecordErrorByType("client_error", "medium")
				RecordErrorByComponent("feed", "dial")
			}, ShouldNotPanic)
		})

		Convey("When recording system metrics", func() {
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(12)
			RecordSystemGCPauseTime(0.5)

			Convey("Then gauges should reflect the values", func() {
				So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 1024)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 12)
			})
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then it should succeed with service metrics", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}
