package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

type Option struct {
	FileIn           string
	Root             string
	RequirementsPath string
	ProfilingPath    string
	ReferencePath    string
	Workers          int
}

func NewOption() *Option {
	o := Option{
		Root:             ".",
		RequirementsPath: "resources/profiling/task_req.json",
	}
	return &o
}

func (o *Option) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.FileIn, "file", "s", "", "Placement batch document, rewritten with the simulated costs and seeds")
	fs.StringVar(&o.Root, "root", o.Root, "Directory the graph and specs references of the batch are resolved against")
	fs.StringVarP(&o.RequirementsPath, "task-req", "t", o.RequirementsPath, "Task requirement table")
	fs.StringVarP(&o.ProfilingPath, "profiling", "p", "", "Profiling samples (CSV)")
	fs.StringVar(&o.ReferencePath, "reference-curve", "", "Additional profiling samples kept for comparison only (CSV)")
	fs.IntVar(&o.Workers, "workers", 0, "Number of placements simulated at once; one per CPU when zero")
}

func (o *Option) CheckOptionOrDie() error {
	if o.FileIn == "" {
		return fmt.Errorf("placement batch file must be specified")
	}
	if o.ProfilingPath == "" {
		return fmt.Errorf("profiling samples must be specified")
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", o.Workers)
	}
	return nil
}
