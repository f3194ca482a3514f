package conductor

// activeStatus is the target workload status convergence waits look for.
const activeStatus = "active"

// ModelStatus is the controller's view of a single model: applications
// keyed by name, each holding its units.
type ModelStatus struct {
	Applications map[string]ApplicationStatus `json:"applications"`
}

// ApplicationStatus describes one application and its units.
type ApplicationStatus struct {
	Status string                `json:"status"`
	Units  map[string]UnitStatus `json:"units"`
}

// UnitStatus describes one unit's workload state.
type UnitStatus struct {
	WorkloadStatus string `json:"workload-status"`
	Leader         bool   `json:"leader"`
}

// unitsActive reports whether every unit of every application in the
// status has reached the target workload status. A model with no
// applications has not converged.
func (s *ModelStatus) unitsActive() bool {
	if len(s.Applications) == 0 {
		return false
	}
	for _, app := range s.Applications {
		for _, unit := range app.Units {
			if unit.WorkloadStatus != activeStatus {
				return false
			}
		}
	}
	return true
}
