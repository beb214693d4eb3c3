package workflow

// Severity classes understood by the frontend badge component.
const (
	SeverityNeutral = "neutral"
	SeverityWarning = "warning"
	SeveritySuccess = "success"
	SeverityDanger  = "danger"
)

type Label struct {
	Text     string `json:"text"`
	Severity string `json:"severity"`
}

var labels = map[Status]Label{
	StatusPendingTeacher:  {Text: "Awaiting teacher review", Severity: SeverityNeutral},
	StatusPendingTPO:      {Text: "Awaiting T&P review", Severity: SeverityWarning},
	StatusApproved:        {Text: "Approved", Severity: SeveritySuccess},
	StatusRejectedTeacher: {Text: "Rejected by teacher", Severity: SeverityDanger},
	StatusRejected:        {Text: "Rejected", Severity: SeverityDanger},
}

// LabelFor maps a status to its human-readable label and severity class.
// Unknown statuses map to a neutral label with the raw status as text.
func LabelFor(s Status) Label {
	if lbl, ok := labels[s]; ok {
		return lbl
	}
	return Label{Text: string(s), Severity: SeverityNeutral}
}
