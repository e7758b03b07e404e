package geometry

import "github.com/p-blackswan/allocation-timeline/internal/models"

// Style is the visual classification of a bar.
type Style struct {
	Class  string       `json:"class"`
	Color  models.Color `json:"color,omitempty"`
	Effort string       `json:"effort"`
}

var statusClasses = map[models.Status]string{
	models.StatusActive:      "allocation-active",
	models.StatusHold:        "allocation-hold",
	models.StatusUnavailable: "allocation-unavailable",
}

var effortClasses = map[models.Effort]string{
	models.EffortLow:    "effort-low",
	models.EffortMedium: "effort-medium",
	models.EffortHigh:   "effort-high",
}

// StatusClass returns the style class for s.
func StatusClass(s models.Status) string {
	if c, ok := statusClasses[s]; ok {
		return c
	}
	return statusClasses[models.StatusActive]
}

// EffortClass returns the style class for e.
func EffortClass(e models.Effort) string {
	if c, ok := effortClasses[e]; ok {
		return c
	}
	return effortClasses[models.EffortMedium]
}

// StyleFor classifies a. Unavailable allocations never carry a project color.
func StyleFor(a models.Allocation, project *models.Project) Style {
	s := Style{
		Class:  StatusClass(a.Status),
		Effort: EffortClass(a.Effort),
	}
	if project != nil && a.Status != models.StatusUnavailable {
		s.Color = project.Color
	}
	return s
}
