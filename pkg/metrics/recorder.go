package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog"
)

// Recorder times the generations of one optimization run.
type Recorder struct {
	sync.Mutex
	run     string
	metrics map[string]interface{}
}

func NewRecorder(run string) *Recorder {
	return &Recorder{
		run:     run,
		metrics: make(map[string]interface{}),
	}
}

// GenerationStart starts timing a generation.
func (r *Recorder) GenerationStart(generation int) {
	r.entryStart(r.generationIdentity(generation))
}

// GenerationEnd observes the duration of a generation started with GenerationStart and
// forgets it.
func (r *Recorder) GenerationEnd(generation int) {
	r.entrySample(r.generationIdentity(generation), generationDuration, generationsTotal)
}

func (r *Recorder) entryStart(entry string) {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.metrics[entry]; !ok {
		r.metrics[entry] = time.Now()
	}
}

// entrySample observes the time elapsed since entry started and deletes it.
func (r *Recorder) entrySample(entry string, summary prometheus.Summary, counterInc prometheus.Counter) {
	r.Lock()
	defer r.Unlock()

	dur, err := r.entryEnd(entry)
	if err != nil {
		klog.V(4).Infof("error recording entry: %s, %v", entry, err)
		return
	}
	summary.Observe(dur.Seconds())
	counterInc.Inc()
	delete(r.metrics, entry)
}

func (r *Recorder) entryEnd(entry string) (time.Duration, error) {
	start, ok := r.metrics[entry]
	if !ok {
		return 0, fmt.Errorf("entry not exist to provide a duration")
	}
	startTime, ok := start.(time.Time)
	if !ok {
		return 0, fmt.Errorf("entry does not have a time entry: %v", start)
	}
	return time.Now().Sub(startTime), nil
}

func (r *Recorder) generationIdentity(generation int) string {
	return strings.Join([]string{r.run, "generation", strconv.Itoa(generation)}, ":")
}
