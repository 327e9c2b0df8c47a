package api

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"

	placementapi "github.com/qed-usc/placement-optimizer/pkg/apis/placement"
)

// MachineTypeInfo holds the static description shared by all instances of a type.
type MachineTypeInfo struct {
	Name string

	// Capacity bounds the demand of a single task. Dimensions not declared here are not
	// checked.
	Capacity *ResourceInfo

	CostPerTime   float64
	EnergyPerTime float64

	// Slots is the number of tasks an instance runs at the same time.
	Slots int
}

// MachineInfo is one machine instance a task can be placed on.
type MachineInfo struct {
	Index int
	ID    string
	Type  *MachineTypeInfo
}

// MachineCatalog is the immutable set of machine types and instances.
type MachineCatalog struct {
	types     map[string]*MachineTypeInfo
	machines  []*MachineInfo
	index     map[string]int
	typeNames []string
}

func NewMachineCatalog(spec *placementapi.CatalogSpec) (*MachineCatalog, error) {
	var allErrs field.ErrorList
	typesPath := field.NewPath("types")

	c := &MachineCatalog{
		types: make(map[string]*MachineTypeInfo, len(spec.Types)),
		index: make(map[string]int),
	}

	if len(spec.Types) == 0 {
		allErrs = append(allErrs, field.Required(typesPath, "at least one machine type is required"))
	}
	for i, ts := range spec.Types {
		p := typesPath.Index(i)
		switch {
		case ts.Name == "":
			allErrs = append(allErrs, field.Required(p.Child("name"), ""))
			continue
		case c.types[ts.Name] != nil:
			allErrs = append(allErrs, field.Duplicate(p.Child("name"), ts.Name))
			continue
		}
		if ts.CostPerTime < 0 {
			allErrs = append(allErrs, field.Invalid(p.Child("costPerTime"), ts.CostPerTime, "must be non-negative"))
		}
		if ts.EnergyPerTime < 0 {
			allErrs = append(allErrs, field.Invalid(p.Child("energyPerTime"), ts.EnergyPerTime, "must be non-negative"))
		}
		if ts.Slots < 0 {
			allErrs = append(allErrs, field.Invalid(p.Child("slots"), ts.Slots, "must be non-negative"))
		}
		if ts.Count < 0 {
			allErrs = append(allErrs, field.Invalid(p.Child("count"), ts.Count, "must be non-negative"))
		}
		slots := ts.Slots
		if slots == 0 {
			slots = 1
		}
		c.types[ts.Name] = &MachineTypeInfo{
			Name:          ts.Name,
			Capacity:      NewResource(ts.Capacity),
			CostPerTime:   ts.CostPerTime,
			EnergyPerTime: ts.EnergyPerTime,
			Slots:         slots,
		}
		c.typeNames = append(c.typeNames, ts.Name)
	}
	sort.Strings(c.typeNames)

	instances := spec.Instances
	if len(instances) == 0 {
		for _, ts := range spec.Types {
			switch {
			case ts.Count <= 1:
				instances = append(instances, placementapi.MachineInstanceSpec{ID: ts.Name, Type: ts.Name})
			default:
				for n := 0; n < ts.Count; n++ {
					instances = append(instances, placementapi.MachineInstanceSpec{
						ID:   fmt.Sprintf("%s-%d", ts.Name, n),
						Type: ts.Name,
					})
				}
			}
		}
	}

	ids := sets.NewString()
	instancesPath := field.NewPath("instances")
	for i, is := range instances {
		p := instancesPath.Index(i)
		if is.ID == "" {
			allErrs = append(allErrs, field.Required(p.Child("id"), ""))
			continue
		}
		if ids.Has(is.ID) {
			allErrs = append(allErrs, field.Duplicate(p.Child("id"), is.ID))
			continue
		}
		ids.Insert(is.ID)
		mt, found := c.types[is.Type]
		if !found {
			allErrs = append(allErrs, field.NotFound(p.Child("type"), is.Type))
			continue
		}
		c.index[is.ID] = len(c.machines)
		c.machines = append(c.machines, &MachineInfo{
			Index: len(c.machines),
			ID:    is.ID,
			Type:  mt,
		})
	}

	if len(allErrs) > 0 {
		return nil, errors.Wrap(ErrSchema, allErrs.ToAggregate().Error())
	}
	return c, nil
}

// Len returns the number of machine instances.
func (c *MachineCatalog) Len() int {
	return len(c.machines)
}

// Machine returns the instance at index i.
func (c *MachineCatalog) Machine(i int) *MachineInfo {
	return c.machines[i]
}

// Index returns the index of the instance with the given id.
func (c *MachineCatalog) Index(id string) (int, bool) {
	i, found := c.index[id]
	return i, found
}

// TypeNames returns the declared machine type names in lexical order.
func (c *MachineCatalog) TypeNames() []string {
	return c.typeNames
}
