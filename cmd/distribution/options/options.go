package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

type Option struct {
	RequirementsPath string
	ProfilingPath    string
	ReferencePath    string
	MachineTypes     []string
	Bins             int
	FileOut          string
}

func NewOption() *Option {
	o := Option{}
	return &o
}

func (o *Option) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.RequirementsPath, "task-req", "t", "resources/profiling/task_req.json", "Task requirement table")
	fs.StringVarP(&o.ProfilingPath, "profiling", "p", "", "Profiling samples (CSV)")
	fs.StringVar(&o.ReferencePath, "reference-curve", "", "Comparison samples overlaid on the histograms (CSV)")
	fs.StringSliceVar(&o.MachineTypes, "machine-type", nil, "Machine types to summarise; every profiled type when empty")
	fs.IntVar(&o.Bins, "bins", 0, "Number of histogram bins")
	fs.StringVar(&o.FileOut, "out", "", "Output file")
}

func (o *Option) CheckOptionOrDie() error {
	if o.ProfilingPath == "" {
		return fmt.Errorf("profiling samples must be specified")
	}
	if o.FileOut == "" {
		return fmt.Errorf("output file must be specified")
	}
	if o.Bins < 0 {
		return fmt.Errorf("bins must be non-negative, got %d", o.Bins)
	}
	return nil
}
