/*
Copyright 2017 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package scheduler

import (
	"context"
	"sync"
	"time"

	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/pkg/metrics"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/conf"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/session"
)

// Report is handed to the report sink once per generation.
type Report struct {
	Generation int
	// Best is the best individual of the generation.
	Best    *session.Individual
	Elapsed time.Duration
}

// ReportSink receives the progress of an optimization run. Its answer tells whether the
// run should go on. ctx expires after the reporting period; a sink that has not answered
// by then is taken as willing to continue.
type ReportSink interface {
	Report(ctx context.Context, report *Report) bool
}

// ReportFunc adapts a function to a ReportSink.
type ReportFunc func(ctx context.Context, report *Report) bool

func (f ReportFunc) Report(ctx context.Context, report *Report) bool {
	return f(ctx, report)
}

// Result is what an optimization run leaves behind.
type Result struct {
	// Best is the best individual evaluated during the run.
	Best  *session.Individual
	State *session.OptimizationState
}

// Scheduler drives an optimization session until it is told to stop. It never stops on
// its own unless the configuration sets a generation budget.
type Scheduler struct {
	evaluator     session.Evaluator
	policy        session.Policy
	configuration *conf.OptimizationConfiguration
	reportPeriod  time.Duration
}

// NewScheduler returns a scheduler
func NewScheduler(
	evaluator session.Evaluator,
	configuration *conf.OptimizationConfiguration,
	policy session.Policy,
) *Scheduler {
	return &Scheduler{
		evaluator:     evaluator,
		policy:        policy,
		configuration: configuration,
		reportPeriod:  configuration.PeriodDuration(),
	}
}

// Run creates, evaluates and selects the initial population, then breeds, evaluates,
// selects and reports one generation after the other. It stops between generations once
// ctx is done, the sink declines to continue or the generation budget is spent, and
// returns the best individual found.
func (pc *Scheduler) Run(ctx context.Context, sink ReportSink) (*Result, error) {
	if err := pc.configuration.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = LogSink(pc.reportPeriod)
	}
	ga := pc.configuration.GA

	seed := time.Now().UnixNano()
	if ga.Seed != nil {
		seed = *ga.Seed
	}
	ssn := session.OpenSession(pc.evaluator, pc.policy, pc.configuration.Policies, session.Options{
		Seed:    seed,
		Workers: ga.Workers,
	})
	defer ssn.Terminate()
	klog.Infof("Starting optimization %v with seed %d", ssn.UID, seed)

	if err := ssn.CheckBreeding(ga.Population, ga.Mutations); err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder(string(ssn.UID))
	start := time.Now()

	recorder.GenerationStart(0)
	if err := ssn.CreatePopulation(ga.InitialPopulation); err != nil {
		return nil, err
	}
	if err := ssn.Evaluate(); err != nil {
		return nil, err
	}
	if err := ssn.RankSelection(ga.SelectedIndividuals); err != nil {
		return nil, err
	}
	recorder.GenerationEnd(0)

	for ctx.Err() == nil {
		if ga.MaxGenerations > 0 && ssn.Generation() >= ga.MaxGenerations {
			klog.V(3).Infof("Generation budget of <%d> spent", ga.MaxGenerations)
			break
		}

		next := ssn.Generation() + 1
		recorder.GenerationStart(next)
		if err := ssn.CreateNewPopulation(ga.Population, ga.Mutations); err != nil {
			return nil, err
		}
		if err := ssn.Evaluate(); err != nil {
			return nil, err
		}
		if err := ssn.RankSelection(ga.SelectedIndividuals); err != nil {
			return nil, err
		}
		recorder.GenerationEnd(next)

		best, err := ssn.SelectStronger()
		if err != nil {
			return nil, err
		}
		report := &Report{
			Generation: ssn.Generation(),
			Best:       best,
			Elapsed:    time.Since(start),
		}
		if !pc.report(ctx, sink, report) {
			klog.V(3).Infof("Report sink stopped optimization %v at generation <%d>", ssn.UID, ssn.Generation())
			break
		}
	}

	ssn.Terminate()
	result := &Result{
		Best:  ssn.Best(),
		State: ssn.GetOptimizationState(),
	}
	klog.Infof("Optimization %v stopped after <%d> generations, best fitness %v",
		ssn.UID, result.State.Generation, result.State.Fitness)
	return result, nil
}

// report hands r to sink and waits at most one reporting period for its answer. A zero
// period waits for the answer unconditionally.
func (pc *Scheduler) report(ctx context.Context, sink ReportSink, r *Report) bool {
	if pc.reportPeriod <= 0 {
		return sink.Report(ctx, r)
	}

	sinkCtx, cancel := context.WithTimeout(ctx, pc.reportPeriod)
	defer cancel()

	answer := make(chan bool, 1)
	go func() {
		defer utilruntime.HandleCrash()
		answer <- sink.Report(sinkCtx, r)
	}()

	select {
	case cont := <-answer:
		return cont
	case <-sinkCtx.Done():
		select {
		case cont := <-answer:
			return cont
		default:
		}
		klog.V(4).Infof("Report sink did not answer within %v, continuing", pc.reportPeriod)
		return true
	}
}

// LogSink logs the best individual through klog, at most once per period, and never asks
// to stop.
func LogSink(period time.Duration) ReportSink {
	var mutex sync.Mutex
	var last time.Time

	return ReportFunc(func(_ context.Context, r *Report) bool {
		mutex.Lock()
		defer mutex.Unlock()

		if !last.IsZero() && time.Since(last) < period {
			return true
		}
		last = time.Now()

		if r.Best.State != nil {
			klog.Infof("Generation <%d> after %v: best fitness %v, costs %v",
				r.Generation, r.Elapsed.Round(time.Millisecond), r.Best.Fitness, r.Best.State.Costs)
		} else {
			klog.Infof("Generation <%d> after %v: no valid placement yet", r.Generation, r.Elapsed.Round(time.Millisecond))
		}
		return true
	})
}
