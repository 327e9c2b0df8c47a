package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/cmd/simulator/options"
	"github.com/qed-usc/placement-optimizer/pkg/apis/helpers"
	"github.com/qed-usc/placement-optimizer/pkg/loader"
	"github.com/qed-usc/placement-optimizer/pkg/simulator"
)

func main() {
	klog.InitFlags(nil)

	o := options.NewOption()
	o.AddFlags(pflag.CommandLine)

	cliflag.InitFlags()
	if err := o.CheckOptionOrDie(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer klog.Flush()

	if err := Run(o); err != nil {
		klog.Flush()
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Run simulates every placement of the batch file and writes the results back to it. The
// file is left untouched unless the whole batch succeeds.
func Run(opt *options.Option) error {
	requirementsPath := resolve(opt.Root, opt.RequirementsPath)
	requirements, err := loader.LoadRequirements(requirementsPath)
	if err != nil {
		return err
	}
	model, err := loader.LoadPerformanceModel(requirementsPath, resolve(opt.Root, opt.ProfilingPath),
		resolve(opt.Root, opt.ReferencePath))
	if err != nil {
		return err
	}

	path := resolve(opt.Root, opt.FileIn)
	entries, err := loader.LoadPlacementBatch(path)
	if err != nil {
		return err
	}

	resolver := loader.NewFileResolver(opt.Root, requirements)
	out, err := simulator.RunBatchSimulation(helpers.SignalContext(), entries, resolver, model,
		simulator.BatchOptions{Workers: opt.Workers})
	if err != nil {
		return err
	}

	if err := loader.SavePlacementBatch(path, out); err != nil {
		return err
	}
	klog.Infof("Simulated %d placements into %s", len(out), path)
	return nil
}
