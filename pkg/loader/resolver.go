package loader

import (
	"path/filepath"
	"sync"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
	"github.com/qed-usc/placement-optimizer/pkg/scheduler/api"
)

// FileResolver resolves the graph and specification references of placement batch entries
// against Root. Every document is loaded once.
type FileResolver struct {
	Root string
	// Requirements supplies the task demands of every resolved graph.
	Requirements placementapi.RequirementsSpec

	mutex    sync.Mutex
	graphs   map[string]*api.TaskGraph
	catalogs map[string]*api.MachineCatalog
}

// NewFileResolver returns a resolver for references relative to root.
func NewFileResolver(root string, requirements placementapi.RequirementsSpec) *FileResolver {
	return &FileResolver{
		Root:         root,
		Requirements: requirements,
	}
}

func (r *FileResolver) path(ref string) string {
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(r.Root, ref)
}

// TaskGraph loads the task graph document ref refers to.
func (r *FileResolver) TaskGraph(ref string) (*api.TaskGraph, error) {
	path := r.path(ref)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if graph, found := r.graphs[path]; found {
		return graph, nil
	}
	graph, err := LoadTaskGraph(path, r.Requirements)
	if err != nil {
		return nil, err
	}
	if r.graphs == nil {
		r.graphs = make(map[string]*api.TaskGraph)
	}
	r.graphs[path] = graph
	return graph, nil
}

// MachineCatalog loads the machine specification document ref refers to.
func (r *FileResolver) MachineCatalog(ref string) (*api.MachineCatalog, error) {
	path := r.path(ref)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if catalog, found := r.catalogs[path]; found {
		return catalog, nil
	}
	catalog, err := LoadMachineCatalog(path)
	if err != nil {
		return nil, err
	}
	if r.catalogs == nil {
		r.catalogs = make(map[string]*api.MachineCatalog)
	}
	r.catalogs[path] = catalog
	return catalog, nil
}
