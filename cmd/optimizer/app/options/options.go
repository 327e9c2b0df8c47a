package options

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"
)

const (
	defaultGraphPath        = "resources/graphs/graph.json"
	defaultMachinesPath     = "resources/machine_specs/machines_specs.json"
	defaultRequirementsPath = "resources/profiling/task_req.json"
	defaultHealthzAddress   = ":11251"
)

// ServerOption is the main context object for the optimizer.
type ServerOption struct {
	Root             string
	GraphPath        string
	MachinesPath     string
	RequirementsPath string
	ProfilingPath    string
	ReferencePath    string
	ParamsPath       string
	ReportPath       string

	Seed           int64
	MaxGenerations int

	ListenAddress      string
	HealthzBindAddress string
	PrintVersion       bool

	flags *pflag.FlagSet
}

// NewServerOption creates a new ServerOption with the default resource layout.
func NewServerOption() *ServerOption {
	return &ServerOption{
		Root:               ".",
		GraphPath:          defaultGraphPath,
		MachinesPath:       defaultMachinesPath,
		RequirementsPath:   defaultRequirementsPath,
		HealthzBindAddress: defaultHealthzAddress,
	}
}

// AddFlags adds flags for a specific optimizer run to the specified FlagSet.
func (s *ServerOption) AddFlags(fs *pflag.FlagSet) {
	s.flags = fs

	fs.StringVar(&s.Root, "root", s.Root, "Directory relative input and output paths are resolved against")
	fs.StringVarP(&s.GraphPath, "graph", "g", s.GraphPath, "Task graph description")
	fs.StringVarP(&s.MachinesPath, "machines", "m", s.MachinesPath, "Machine specifications")
	fs.StringVarP(&s.RequirementsPath, "task-req", "t", s.RequirementsPath, "Task requirement table")
	fs.StringVarP(&s.ProfilingPath, "profiling", "p", s.ProfilingPath, "Profiling samples (CSV)")
	fs.StringVar(&s.ReferencePath, "reference-curve", s.ReferencePath, "Additional profiling samples kept for comparison only (CSV)")
	fs.StringVar(&s.ParamsPath, "params", s.ParamsPath, "Optimization parameter document; built-in defaults when empty")
	fs.StringVarP(&s.ReportPath, "report", "o", s.ReportPath, "Where to write the best placement and the optimization summary")
	fs.Int64Var(&s.Seed, "seed", s.Seed, "Seed of the run, overrides the parameter document")
	fs.IntVar(&s.MaxGenerations, "max-generations", s.MaxGenerations, "Stop after that many generations, overrides the parameter document")
	fs.StringVar(&s.ListenAddress, "listen-address", s.ListenAddress, "The address to serve prometheus metrics on; disabled when empty")
	fs.StringVar(&s.HealthzBindAddress, "healthz-address", s.HealthzBindAddress, "The address to listen on for the health check server; disabled when empty")
	fs.BoolVar(&s.PrintVersion, "version", false, "Show version and quit")
}

// CheckOptionOrDie checks the flags.
func (s *ServerOption) CheckOptionOrDie() error {
	if s.ProfilingPath == "" {
		return fmt.Errorf("profiling samples must be specified")
	}
	if s.MaxGenerations < 0 {
		return fmt.Errorf("max-generations must be non-negative, got %d", s.MaxGenerations)
	}
	return nil
}

// SeedOverride returns the seed given on the command line, if any.
func (s *ServerOption) SeedOverride() *int64 {
	if s.flags == nil || !s.flags.Changed("seed") {
		return nil
	}
	seed := s.Seed
	return &seed
}

// Path resolves path against Root. Empty paths stay empty.
func (s *ServerOption) Path(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.Root, path)
}
