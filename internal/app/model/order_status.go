package model

// progressSteps are the stages drawn by the tracking indicator.
var progressSteps = [...]struct {
	status OrderStatus
	label  string
}{
	{OrderStatusPending, "Order placed"},
	{OrderStatusProcessing, "Processing"},
	{OrderStatusCompleted, "Completed"},
}

// Rank orders the non-terminal path. Cancelled and unknown statuses rank -1.
func (s OrderStatus) Rank() int {
	for i, step := range progressSteps {
		if step.status == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s == OrderStatusCancelled || s.Rank() >= 0
}

// CanTransitionTo allows forward moves along the path and cancellation
// of orders that have not completed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() || s == next {
		return false
	}
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled:
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.Rank() > s.Rank()
}

type ProgressStep struct {
	Status OrderStatus `json:"status"`
	Label  string      `json:"label"`
	Active bool        `json:"active"`
}

type Progress struct {
	Status    OrderStatus     `json:"status"`
	Steps     [3]ProgressStep `json:"steps"`
	Cancelled bool            `json:"cancelled"`
}

// ProjectProgress maps a status onto the three-stage indicator. Step i is
// active iff the status ranks at or past it; cancelled leaves all inactive.
func ProjectProgress(status OrderStatus) Progress {
	p := Progress{Status: status, Cancelled: status == OrderStatusCancelled}
	rank := status.Rank()
	for i, step := range progressSteps {
		p.Steps[i] = ProgressStep{
			Status: step.status,
			Label:  step.label,
			Active: rank >= i,
		}
	}
	return p
}
