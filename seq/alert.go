package seq

import "time"

type (
	// Alert is a short operator-facing message: something went wrong (or is
	// worth knowing) but the engine keeps running. Alerts with the same Name
	// replace each other, so a recurring problem does not pile up.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
		Duration time.Duration
	}

	AlertPriority int
)

const (
	None AlertPriority = iota
	Info
	Warning
	Error
)

const defaultAlertDuration = 5 * time.Second

func (p AlertPriority) String() string {
	switch p {
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	}
	return "None"
}
