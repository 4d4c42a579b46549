package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a private registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("When a manager is built with options", func() {
			m := NewManager(
				WithPrometheusRegistry(reg),
				WithNamespace("drill"),
				WithSubsystem("test"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
			)
			m.evaluationsProcessed.Inc()

			Convey("Then instruments carry the namespace and labels", func() {
				out := `
# HELP drill_test_evaluations_processed_total Evaluations applied to a profile
# TYPE drill_test_evaluations_processed_total counter
drill_test_evaluations_processed_total{env="test"} 1
`
				So(testutil.GatherAndCompare(reg, strings.NewReader(out), "drill_test_evaluations_processed_total"), ShouldBeNil)
			})
		})

		Convey("When two managers share a registry", func() {
			NewManager(WithPrometheusRegistry(reg))
			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(reg)) }, ShouldPanic)
			})
		})
	})
}

func TestPackageRecorders(t *testing.T) {
	Convey("Given the global instruments", t, func() {
		Convey("Counters move with their recorders", func() {
			before := testutil.ToFloat64(global.evaluationsProcessed)
			RecordEvaluationProcessed()
			RecordEvaluationProcessed()
			So(testutil.ToFloat64(global.evaluationsProcessed), ShouldEqual, before+2)

			RecordEvaluationDegraded("severity_clamped")
			So(testutil.ToFloat64(global.evaluationsDegraded.WithLabelValues("severity_clamped")), ShouldBeGreaterThanOrEqualTo, 1)

			RecordLeakReinforcement("postflop")
			So(testutil.ToFloat64(global.leakReinforcements.WithLabelValues("postflop")), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("Queue size also sets utilization", func() {
			UpdateQueueSize(25, 100)
			So(testutil.ToFloat64(global.queueSize), ShouldEqual, 25)
			So(testutil.ToFloat64(global.queueUtilization), ShouldEqual, 0.25)
		})

		Convey("Store failures are counted separately from latency", func() {
			before := testutil.ToFloat64(global.storeErrors.WithLabelValues("memory", "put"))
			RecordStoreOperation("memory", "put", 0.3, nil)
			RecordStoreOperation("memory", "put", 0.4, errors.New("boom"))
			So(testutil.ToFloat64(global.storeErrors.WithLabelValues("memory", "put")), ShouldEqual, before+1)
		})

		Convey("Gauges reflect the last update", func() {
			UpdateProfiles(42)
			UpdateWorkerCount(4)
			AddWorkerActive(1)
			AddWorkerActive(-1)
			So(testutil.ToFloat64(global.profiles), ShouldEqual, 42)
			So(testutil.ToFloat64(global.workerCount), ShouldEqual, 4)
		})

		Convey("Remaining recorders do not panic", func() {
			So(func() {
				RecordEvaluationDuplicate()
				RecordTrackerApplyLatency(1.5)
				RecordDifficultyRecommendation("intermediate", "advanced")
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(2)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 0.2)
				RecordErrorByComponent("store", "timeout")
				RecordErrorByEndpoint("/evaluations", "POST", "bad_request")
				RecordLLMRequest("openai", "ok", 900)
				RecordLLMFallback("openai")
				CollectRuntime()
			}, ShouldNotPanic)
		})

		Convey("The registry exposes coach families", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(names, ShouldContain, "coach_evaluations_processed_total")
		})
	})
}
