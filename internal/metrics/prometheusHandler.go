package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var indexedBlocksTotal = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "indexed_blocks_total",
	Help: "Blocks currently held in the block index",
})

var graphTriplesExtracted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "graph_triples_extracted_total",
	Help: "Triples the extraction model has produced across all blocks",
})

var retrievalCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "retrieval_candidates_returned",
	Help:    "Candidates surviving the retrieval pipeline per query",
	Buckets: []float64{0, 1, 2, 3, 5, 8, 10},
})

var answerRefusals = promauto.NewCounter(prometheus.CounterOpts{
	Name: "answer_refusals_total",
	Help: "Answers replaced by the refusal response",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) CaptureWriteHeaderMetrics(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush and Unwrap let streaming handlers reach the real connection through
// the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *HttpStatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func SetIndexedBlocks(count int) {
	indexedBlocksTotal.Set(float64(count))
}

func CaptureGraphExtraction(tripleCount int) {
	graphTriplesExtracted.Add(float64(tripleCount))
}

func CaptureRetrievalCandidates(count int) {
	retrievalCandidates.Observe(float64(count))
}

func CaptureAnswerRefusal() {
	answerRefusals.Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent in ProcessRequest.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of model and index calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
