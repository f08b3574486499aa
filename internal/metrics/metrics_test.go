package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			manager := NewManager()

			Convey("Then it should use a private registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
				So(manager.Registry(), ShouldNotEqual, prometheus.DefaultRegisterer)
			})
		})

		Convey("When creating two managers with default options", func() {
			Convey("Then registration should not collide", func() {
				So(func() {
					NewManager()
					NewManager()
				}, ShouldNotPanic)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("pipeline"),
				WithLatencyBuckets([]float64{0.001, 0.01}),
				WithRegistry(registry),
			)
			manager.ObserveFrame(time.Millisecond, false, false)

			Convey("Then metrics should carry the custom names", func() {
				So(manager.Registry(), ShouldEqual, registry)
				n, err := testutil.GatherAndCount(registry, "test_pipeline_frames_processed_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When options carry empty values", func() {
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithLatencyBuckets(nil), WithRegistry(nil))

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "handsphere")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.latencyBuckets, ShouldResemble, defaultLatencyBuckets)
				So(manager.registry, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		manager := NewManager()

		Convey("When frames are observed", func() {
			manager.ObserveFrame(100*time.Microsecond, false, false)
			manager.ObserveFrame(200*time.Microsecond, true, true)
			manager.ObserveFrame(150*time.Microsecond, true, false)

			Convey("Then counters should reflect them", func() {
				So(testutil.ToFloat64(manager.framesProcessed), ShouldEqual, 3)
				So(testutil.ToFloat64(manager.contacts), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.colorTriggers), ShouldEqual, 1)
			})
		})

		Convey("When hands are observed", func() {
			manager.ObserveHand("Right")
			manager.ObserveHand("Right")
			manager.ObserveHand("Left")

			Convey("Then they should be counted per handedness", func() {
				So(testutil.ToFloat64(manager.handsObserved.WithLabelValues("Right")), ShouldEqual, 2)
				So(testutil.ToFloat64(manager.handsObserved.WithLabelValues("Left")), ShouldEqual, 1)
			})
		})

		Convey("When gauges are set", func() {
			manager.SetSize(0.88, 0.2)
			manager.SetClients(3)

			Convey("Then they should hold the latest value", func() {
				So(testutil.ToFloat64(manager.currentSize), ShouldAlmostEqual, 0.88)
				So(testutil.ToFloat64(manager.targetSize), ShouldAlmostEqual, 0.2)
				So(testutil.ToFloat64(manager.wsClients), ShouldEqual, 3)
			})
		})

		Convey("When frames are rejected and plugins run", func() {
			manager.RejectFrame("ws")
			manager.ObservePlugin("color-file", "ok")
			manager.ObservePlugin("color-file", "error")

			Convey("Then they should be labelled", func() {
				So(testutil.ToFloat64(manager.framesRejected.WithLabelValues("ws")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.pluginExecutions.WithLabelValues("color-file", "ok")), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.pluginExecutions.WithLabelValues("color-file", "error")), ShouldEqual, 1)
			})
		})
	})
}

func TestMetricsNilManager(t *testing.T) {
	Convey("Given a nil manager", t, func() {
		var manager *Manager

		Convey("Then recording should be a no-op", func() {
			So(func() {
				manager.ObserveFrame(time.Millisecond, true, true)
				manager.ObserveHand("Left")
				manager.RejectFrame("http")
				manager.SetSize(1, 1)
				manager.SetClients(1)
				manager.ObservePlugin("p", "ok")
			}, ShouldNotPanic)
		})
	})
}

func TestMetricsHandler(t *testing.T) {
	Convey("Given a manager with recorded frames", t, func() {
		manager := NewManager()
		manager.ObserveFrame(time.Millisecond, false, true)

		Convey("When scraping the handler", func() {
			rec := httptest.NewRecorder()
			manager.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the exposition should list the counters", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := rec.Body.String()
				So(strings.Contains(body, "handsphere_engine_frames_processed_total 1"), ShouldBeTrue)
				So(strings.Contains(body, "handsphere_engine_color_triggers_total 1"), ShouldBeTrue)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		manager := NewManager()
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					manager.ObserveFrame(time.Microsecond, false, false)
				}
			}()
		}
		wg.Wait()

		Convey("Then no increments should be lost", func() {
			So(testutil.ToFloat64(manager.framesProcessed), ShouldEqual, 1000)
		})
	})
}
