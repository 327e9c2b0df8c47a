package loader

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog"

	"github.com/qed-usc/placement-optimizer/pkg/perfmodel"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// Accepted header names of the profiling columns.
var (
	taskColumns    = []string{"task", "task_class", "class"}
	machineColumns = []string{"machine", "machine_type", "type"}
	costColumns    = []string{"cost", "time", "duration"}
)

// LoadProfiling reads profiling samples from a CSV file. The header names the task,
// machine and cost columns; other columns are ignored.
func LoadProfiling(path string) ([]perfmodel.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(api.ErrParse, "opening %s: %v", path, err)
	}
	defer f.Close()

	samples, err := readProfiling(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	klog.V(3).Infof("Loaded <%d> profiling samples from %s", len(samples), path)
	return samples, nil
}

func readProfiling(r io.Reader) ([]perfmodel.Sample, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(api.ErrSchema, "empty profiling file")
	}
	if err != nil {
		return nil, errors.Wrap(api.ErrParse, err.Error())
	}

	taskCol, machineCol, costCol := -1, -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		switch {
		case taskCol < 0 && contains(taskColumns, name):
			taskCol = i
		case machineCol < 0 && contains(machineColumns, name):
			machineCol = i
		case costCol < 0 && contains(costColumns, name):
			costCol = i
		}
	}
	if taskCol < 0 || machineCol < 0 || costCol < 0 {
		return nil, errors.Wrapf(api.ErrSchema, "header %v lacks a task, machine or cost column", header)
	}
	width := maxInt(taskCol, maxInt(machineCol, costCol)) + 1

	var samples []perfmodel.Sample
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(api.ErrParse, err.Error())
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < width {
			return nil, errors.Wrapf(api.ErrSchema, "line %d: expected at least %d fields, got %d", line, width, len(record))
		}

		cost, err := strconv.ParseFloat(strings.TrimSpace(record[costCol]), 64)
		if err != nil {
			return nil, errors.Wrapf(api.ErrParse, "line %d: %v", line, err)
		}
		if cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
			return nil, errors.Wrapf(api.ErrSchema, "line %d: invalid cost %v", line, cost)
		}

		samples = append(samples, perfmodel.Sample{
			TaskClass:   strings.TrimSpace(record[taskCol]),
			MachineType: strings.TrimSpace(record[machineCol]),
			Cost:        cost,
		})
	}
	return samples, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
