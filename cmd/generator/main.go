package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/cmd/generator/options"
	"github.com/qed-usc/placement-optimizer/pkg/generator"
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
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func Run(opt *options.Option) error {
	spec, err := generator.LoadSpec(opt.SpecPath)
	if err != nil {
		return err
	}
	if opt.Seed != 0 {
		spec.Seed = opt.Seed
	}
	if opt.NumTasks > 0 {
		spec.Graph.NumTasks = opt.NumTasks
	}

	gen, err := generator.NewGenerator(spec)
	if err != nil {
		return err
	}

	return gen.Run(opt.GraphPath)
}
