package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/cmd/distribution/options"
	"github.com/qed-usc/placement-optimizer/pkg/loader"
	"github.com/qed-usc/placement-optimizer/pkg/perfmodel"
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

// Run fits the performance model and writes the histogram of every requested machine type.
func Run(opt *options.Option) error {
	model, err := loader.LoadPerformanceModel(opt.RequirementsPath, opt.ProfilingPath, opt.ReferencePath)
	if err != nil {
		return err
	}

	machineTypes := opt.MachineTypes
	if len(machineTypes) == 0 {
		machineTypes = model.MachineTypes()
	}

	summaries := make([]*perfmodel.Histogram, 0, len(machineTypes))
	for _, machineType := range machineTypes {
		h, err := model.DistributionSummary(machineType, opt.Bins)
		if err != nil {
			return err
		}
		summaries = append(summaries, h)
	}

	return loader.WriteDocument(opt.FileOut, summaries)
}
