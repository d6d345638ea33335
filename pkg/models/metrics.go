package models

// DashboardMetrics holds the aggregate counters shown on the KPI tiles.
type DashboardMetrics struct {
	ActiveJourneys       int     `json:"active_journeys"`
	BGVPending           int     `json:"bgv_pending"`
	NotStarted           int     `json:"not_started"`
	PendingDocuments     int     `json:"pending_documents"`
	PendingIDCreation    int     `json:"pending_id_creation"`
	Completed            int     `json:"completed"`
	UpcomingJoiners      int     `json:"upcoming_joiners"`
	AvgTimeToOnboardDays float64 `json:"avg_time_to_onboard_days"`
	AvgSatisfaction      float64 `json:"avg_satisfaction"`
	AvgBGCDays           float64 `json:"avg_bgc_days"`
}

// MetricsDelta is a signed change to the counters of DashboardMetrics.
type MetricsDelta struct {
	ActiveJourneys    int `json:"active_journeys,omitempty"     yaml:"active_journeys"`
	BGVPending        int `json:"bgv_pending,omitempty"         yaml:"bgv_pending"`
	NotStarted        int `json:"not_started,omitempty"         yaml:"not_started"`
	PendingDocuments  int `json:"pending_documents,omitempty"   yaml:"pending_documents"`
	PendingIDCreation int `json:"pending_id_creation,omitempty" yaml:"pending_id_creation"`
	Completed         int `json:"completed,omitempty"           yaml:"completed"`
}

// Apply returns m with d added. Counters are clamped at zero.
func (m DashboardMetrics) Apply(d MetricsDelta) DashboardMetrics {
	m.ActiveJourneys = clampAdd(m.ActiveJourneys, d.ActiveJourneys)
	m.BGVPending = clampAdd(m.BGVPending, d.BGVPending)
	m.NotStarted = clampAdd(m.NotStarted, d.NotStarted)
	m.PendingDocuments = clampAdd(m.PendingDocuments, d.PendingDocuments)
	m.PendingIDCreation = clampAdd(m.PendingIDCreation, d.PendingIDCreation)
	m.Completed = clampAdd(m.Completed, d.Completed)

	return m
}

// IsZero reports whether the delta changes nothing.
func (d MetricsDelta) IsZero() bool {
	return d == MetricsDelta{}
}

// StageCount is one bucket of the stage histogram.
type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

// StageDistribution is the ordered stage histogram.
type StageDistribution []StageCount

// Total returns the sum of all bucket counts.
func (d StageDistribution) Total() int {
	total := 0
	for _, b := range d {
		total += b.Count
	}

	return total
}

// Count returns the count of the given stage, or zero when the bucket is absent.
func (d StageDistribution) Count(stage Stage) int {
	for _, b := range d {
		if b.Stage == stage {
			return b.Count
		}
	}

	return 0
}

// Increment returns a copy with delta added to stage, clamped at zero. A
// positive delta on a missing bucket appends it.
func (d StageDistribution) Increment(stage Stage, delta int) StageDistribution {
	out := d.Clone()
	for i := range out {
		if out[i].Stage == stage {
			out[i].Count = clampAdd(out[i].Count, delta)

			return out
		}
	}

	if delta > 0 {
		out = append(out, StageCount{Stage: stage, Count: delta})
	}

	return out
}

// Move returns a copy with one unit moved from one bucket to another. The
// move is skipped when the source bucket is empty, so the total is always
// conserved and no bucket goes negative.
func (d StageDistribution) Move(from, to Stage) (StageDistribution, bool) {
	if from == to || d.Count(from) == 0 {
		return d.Clone(), false
	}

	return d.Increment(from, -1).Increment(to, 1), true
}

// Clone returns an independent copy.
func (d StageDistribution) Clone() StageDistribution {
	if d == nil {
		return nil
	}

	out := make(StageDistribution, len(d))
	copy(out, d)

	return out
}

// DepartmentMetrics summarises onboarding load per department.
type DepartmentMetrics struct {
	Department      Department `json:"department"`
	ActiveCases     int        `json:"active_cases"`
	CompletedCases  int        `json:"completed_cases"`
	AvgProgress     float64    `json:"avg_progress"`
	ExceptionsTotal int        `json:"exceptions_total"`
}

func clampAdd(v, delta int) int {
	v += delta
	if v < 0 {
		return 0
	}

	return v
}
