package api

// Objective names of the cost vector.
const (
	ObjectiveMakespan = "makespan"
	ObjectiveCost     = "cost"
	ObjectiveEnergy   = "energy"
	ObjectiveWaste    = "waste"
)

// Objectives lists every objective the simulator reports.
var Objectives = []string{ObjectiveMakespan, ObjectiveCost, ObjectiveEnergy, ObjectiveWaste}

// TaskTiming records when and where a task ran in one simulation.
type TaskTiming struct {
	TaskID    TaskID  `json:"task"`
	MachineID string  `json:"machine"`
	Start     float64 `json:"start"`
	Duration  float64 `json:"duration"`
	End       float64 `json:"end"`
}

// SimulationState is the outcome of simulating one placement. It is never modified after
// the simulator returns it.
type SimulationState struct {
	Seed  int64              `json:"seed"`
	Costs map[string]float64 `json:"costs"`

	// Imbalance is the standard deviation of busy time across machine instances.
	Imbalance float64 `json:"imbalance"`

	Tasks []TaskTiming `json:"tasks"`
}

// Makespan returns the completion time of the last task.
func (s *SimulationState) Makespan() float64 {
	return s.Costs[ObjectiveMakespan]
}
