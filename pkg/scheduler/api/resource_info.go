package api

import (
	"fmt"
	"math"
	"sort"

	v1 "k8s.io/api/core/v1"
	"volcano.sh/volcano/pkg/scheduler/util/assert"
)

// minScalarResource is the smallest quantity treated as non-zero.
var minScalarResource = 1e-9

// ResourceInfo is a vector of named scalar resource amounts. It is used both for task
// demands and machine capacities.
type ResourceInfo struct {
	ScalarResources map[v1.ResourceName]float64
}

func EmptyResource() *ResourceInfo {
	return &ResourceInfo{}
}

// NewResource converts a resource list into a scalar vector. Quantities keep milli precision,
// so "500m" cpu becomes 0.5 and "2Gi" memory becomes 2147483648.
func NewResource(rl v1.ResourceList) *ResourceInfo {
	r := EmptyResource()
	for rName, rQuant := range rl {
		r.AddScalar(rName, float64(rQuant.MilliValue())/1000)
	}
	return r
}

func (r *ResourceInfo) Clone() *ResourceInfo {
	clone := &ResourceInfo{}

	if r.ScalarResources != nil {
		clone.ScalarResources = make(map[v1.ResourceName]float64, len(r.ScalarResources))
		for k, v := range r.ScalarResources {
			clone.ScalarResources[k] = v
		}
	}

	return clone
}

// IsEmpty returns bool after checking any of resource is less than min possible value
func (r *ResourceInfo) IsEmpty() bool {
	for _, rQuant := range r.ScalarResources {
		if rQuant >= minScalarResource {
			return false
		}
	}

	return true
}

// Add is used to add the two resources
func (r *ResourceInfo) Add(rr *ResourceInfo) *ResourceInfo {
	for rName, rQuant := range rr.ScalarResources {
		if r.ScalarResources == nil {
			r.ScalarResources = map[v1.ResourceName]float64{}
		}
		r.ScalarResources[rName] += rQuant
	}

	return r
}

// Sub subtracts two Resource objects. The caller must make sure rr fits into r.
func (r *ResourceInfo) Sub(rr *ResourceInfo) *ResourceInfo {
	assert.Assertf(rr.LessEqual(r), "resource is not sufficient to do operation: <%v> sub <%v>", r, rr)

	for rrName, rrQuant := range rr.ScalarResources {
		if r.ScalarResources == nil {
			return r
		}
		r.ScalarResources[rrName] -= rrQuant
	}

	return r
}

// LessEqual checks whether every dimension of r fits into rr. Dimensions missing from rr
// count as zero.
func (r *ResourceInfo) LessEqual(rr *ResourceInfo) bool {
	lessEqualFunc := func(l, r, diff float64) bool {
		if l < r || math.Abs(l-r) < diff {
			return true
		}
		return false
	}

	for rName, rQuant := range r.ScalarResources {
		if rQuant <= minScalarResource {
			continue
		}
		if rr.ScalarResources == nil {
			return false
		}

		if !lessEqualFunc(rQuant, rr.ScalarResources[rName], minScalarResource) {
			return false
		}
	}

	return true
}

// Restrict returns a copy of r keeping only the dimensions declared by rr.
func (r *ResourceInfo) Restrict(rr *ResourceInfo) *ResourceInfo {
	out := EmptyResource()
	for rName := range rr.ScalarResources {
		if v, found := r.ScalarResources[rName]; found {
			out.SetScalar(rName, v)
		}
	}
	return out
}

// String returns resource details in string format
func (r *ResourceInfo) String() string {
	str := ""
	for i, rName := range r.ResourceNames() {
		if i > 0 {
			str += ", "
		}
		str = fmt.Sprintf("%s%s %0.2f", str, rName, r.ScalarResources[rName])
	}
	return str
}

// Get returns the resource value for that particular resource type
func (r *ResourceInfo) Get(rn v1.ResourceName) float64 {
	if r.ScalarResources == nil {
		return 0
	}
	return r.ScalarResources[rn]
}

// ResourceNames returns all resource types in lexical order.
func (r *ResourceInfo) ResourceNames() []v1.ResourceName {
	resNames := make([]v1.ResourceName, 0, len(r.ScalarResources))
	for rName := range r.ScalarResources {
		resNames = append(resNames, rName)
	}
	sort.Slice(resNames, func(i, j int) bool { return resNames[i] < resNames[j] })

	return resNames
}

// AddScalar adds a resource by a scalar value of this resource.
func (r *ResourceInfo) AddScalar(name v1.ResourceName, quantity float64) {
	r.SetScalar(name, r.Get(name)+quantity)
}

// SetScalar sets a resource by a scalar value of this resource.
func (r *ResourceInfo) SetScalar(name v1.ResourceName, quantity float64) {
	// Lazily allocate scalar resource map.
	if r.ScalarResources == nil {
		r.ScalarResources = map[v1.ResourceName]float64{}
	}
	r.ScalarResources[name] = quantity
}
