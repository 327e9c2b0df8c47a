package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Option configures a generator run.
type Option struct {
	SpecPath  string
	GraphPath string
	// Seed overrides the seed of the generator document when non-zero.
	Seed int64
	// NumTasks overrides the graph size of the generator document when non-zero.
	NumTasks int
}

func NewOption() *Option {
	return &Option{}
}

func (o *Option) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.SpecPath, "in", "", "Generator document: task templates and graph shape")
	fs.StringVar(&o.GraphPath, "out", "", "Where to write the generated task graph")
	fs.Int64Var(&o.Seed, "seed", 0, "Seed overriding the one of the generator document")
	fs.IntVar(&o.NumTasks, "num-tasks", 0, "Number of tasks overriding the one of the generator document")
}

func (o *Option) CheckOptionOrDie() error {
	switch {
	case o.SpecPath == "":
		return fmt.Errorf("generator document must be specified")
	case o.GraphPath == "":
		return fmt.Errorf("output graph must be specified")
	case o.NumTasks < 0:
		return fmt.Errorf("num-tasks must be non-negative, got %d", o.NumTasks)
	}
	return nil
}
