package loader

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog"
	"sigs.k8s.io/yaml"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/perfmodel"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// readDocument decodes the JSON or YAML document at path into v. Unknown fields are
// rejected with ErrSchema, malformed documents with ErrParse.
func readDocument(path string, v interface{}) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrapf(api.ErrParse, "reading %s: %v", path, err)
	}
	if err := yaml.UnmarshalStrict(data, v); err != nil {
		if yaml.Unmarshal(data, v) == nil {
			return errors.Wrapf(api.ErrSchema, "decoding %s: %v", path, err)
		}
		return errors.Wrapf(api.ErrParse, "decoding %s: %v", path, err)
	}
	return nil
}

// LoadRequirements reads the task requirement table mapping each task class to its demand.
func LoadRequirements(path string) (placementapi.RequirementsSpec, error) {
	requirements := placementapi.RequirementsSpec{}
	if err := readDocument(path, &requirements); err != nil {
		return nil, err
	}
	return requirements, nil
}

// LoadTaskGraph reads a task graph document. Task demands come from requirements unless a
// task overrides them.
func LoadTaskGraph(path string, requirements placementapi.RequirementsSpec) (*api.TaskGraph, error) {
	spec := &placementapi.GraphSpec{}
	if err := readDocument(path, spec); err != nil {
		return nil, err
	}
	graph, err := api.NewTaskGraph(spec, requirements)
	if err != nil {
		return nil, errors.Wrapf(err, "task graph %s", path)
	}
	klog.V(3).Infof("Loaded task graph %s with <%d> tasks", path, graph.Len())
	return graph, nil
}

// LoadMachineCatalog reads a machine specification document.
func LoadMachineCatalog(path string) (*api.MachineCatalog, error) {
	spec := &placementapi.CatalogSpec{}
	if err := readDocument(path, spec); err != nil {
		return nil, err
	}
	catalog, err := api.NewMachineCatalog(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "machine catalog %s", path)
	}
	klog.V(3).Infof("Loaded machine catalog %s with <%d> machines", path, catalog.Len())
	return catalog, nil
}

// LoadPerformanceModel fits the performance model from the requirement table and the
// profiling samples. referencePath is optional.
func LoadPerformanceModel(requirementsPath, profilingPath, referencePath string) (*perfmodel.Model, error) {
	requirements, err := LoadRequirements(requirementsPath)
	if err != nil {
		return nil, err
	}
	samples, err := LoadProfiling(profilingPath)
	if err != nil {
		return nil, err
	}

	var reference []perfmodel.Sample
	if referencePath != "" {
		if reference, err = LoadProfiling(referencePath); err != nil {
			return nil, err
		}
	}

	model, err := perfmodel.Fit(samples, requirements, reference)
	if err != nil {
		return nil, errors.Wrapf(err, "fitting %s", profilingPath)
	}
	return model, nil
}

// LoadPlacementBatch reads a placement batch document.
func LoadPlacementBatch(path string) ([]placementapi.PlacementEntry, error) {
	var entries []placementapi.PlacementEntry
	if err := readDocument(path, &entries); err != nil {
		return nil, err
	}
	for i, entry := range entries {
		if entry.Graph == "" || entry.Specs == "" {
			return nil, errors.Wrapf(api.ErrSchema, "%s: entry %d needs both graph and specs", path, i)
		}
	}
	return entries, nil
}

// SavePlacementBatch writes entries back to path.
func SavePlacementBatch(path string, entries []placementapi.PlacementEntry) error {
	return WriteDocument(path, entries)
}

// WriteDocument writes v to path as indented JSON, or as YAML when the extension asks for
// it. The file is replaced atomically.
func WriteDocument(path string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
	default:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}

	tmp, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path)+".")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
