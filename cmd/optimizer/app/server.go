package app

import (
	"context"

	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/cmd/optimizer/app/options"
	"github.com/qed-usc/placement-optimizer/pkg/apis/helpers"
	"github.com/qed-usc/placement-optimizer/pkg/loader"
	"github.com/qed-usc/placement-optimizer/pkg/metrics"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/conf"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/session"
	"github.com/qed-usc/placement-optimizer/pkg/simulator"
)

// Report is the document written at the end of a run: the simulation of the best
// placement next to the optimization summary.
type Report struct {
	*api.SimulationState
	Placement map[string]string          `json:"placement,omitempty"`
	GA        *session.OptimizationState `json:"ga"`
}

// Run loads the static inputs, then optimizes until the generation budget is spent or
// the process is signalled.
func Run(opt *options.ServerOption) error {
	ctx := helpers.SignalContext()

	if opt.HealthzBindAddress != "" {
		if err := helpers.StartHealthz(ctx, opt.HealthzBindAddress, "placement-optimizer"); err != nil {
			return err
		}
	}
	if opt.ListenAddress != "" {
		metrics.Register()
		if err := helpers.StartMetrics(ctx, opt.ListenAddress); err != nil {
			return err
		}
		klog.Infof("Serving metrics at %s", opt.ListenAddress)
	}

	sim, err := buildSimulator(opt)
	if err != nil {
		return err
	}

	configuration, policy, err := scheduler.ReadConfiguration(opt.Path(opt.ParamsPath))
	if err != nil {
		return err
	}
	if seed := opt.SeedOverride(); seed != nil {
		configuration.GA.Seed = seed
	}
	if opt.MaxGenerations > 0 {
		configuration.GA.MaxGenerations = opt.MaxGenerations
	}

	result, err := optimize(ctx, sim, configuration, policy)
	if err != nil {
		return err
	}

	if opt.ReportPath == "" {
		return nil
	}
	report := &Report{GA: result.State}
	if result.Best != nil && result.Best.State != nil {
		report.SimulationState = result.Best.State
		report.Placement = result.Best.Placement.ToMap(sim.Graph(), sim.Catalog())
	}
	path := opt.Path(opt.ReportPath)
	if err := loader.WriteDocument(path, report); err != nil {
		return err
	}
	klog.Infof("Report written to %s", path)
	return nil
}

// buildSimulator loads every static input. Any structural error aborts before the search
// begins.
func buildSimulator(opt *options.ServerOption) (*simulator.Simulator, error) {
	requirements, err := loader.LoadRequirements(opt.Path(opt.RequirementsPath))
	if err != nil {
		return nil, err
	}
	graph, err := loader.LoadTaskGraph(opt.Path(opt.GraphPath), requirements)
	if err != nil {
		return nil, err
	}
	catalog, err := loader.LoadMachineCatalog(opt.Path(opt.MachinesPath))
	if err != nil {
		return nil, err
	}
	model, err := loader.LoadPerformanceModel(opt.Path(opt.RequirementsPath), opt.Path(opt.ProfilingPath),
		opt.Path(opt.ReferencePath))
	if err != nil {
		return nil, err
	}
	return simulator.NewSimulator(graph, catalog, model)
}

func optimize(ctx context.Context, sim *simulator.Simulator, configuration *conf.OptimizationConfiguration, policy session.Policy) (*scheduler.Result, error) {
	s := scheduler.NewScheduler(sim, configuration, policy)
	return s.Run(ctx, scheduler.LogSink(configuration.PeriodDuration()))
}
