package roadmap

import "github.com/pkg/errors"

// Status is the production stage of a simulator group.
type Status string

const (
	StatusIdea      Status = "IDEIA"
	StatusPrototype Status = "PROTOTIPO"
	StatusPilot     Status = "PILOTO"
	StatusLive      Status = "PRODUCAO"
)

// Statuses in board order.
var Statuses = []Status{StatusIdea, StatusPrototype, StatusPilot, StatusLive}

var (
	ErrTransitionNotAllowed = errors.New("transition not permitted")

	transitions = map[Status][]Status{
		StatusIdea:      {StatusPrototype},
		StatusPrototype: {StatusPilot, StatusIdea},
		StatusPilot:     {StatusLive, StatusPrototype},
		StatusLive:      {StatusPilot},
	}
)

func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Label is the human name of s.
func (s Status) Label() string {
	switch s {
	case StatusIdea:
		return "Ideia"
	case StatusPrototype:
		return "Protótipo"
	case StatusPilot:
		return "Piloto"
	case StatusLive:
		return "Produção"
	}
	return string(s)
}

// CanTransition reports whether a roadmap may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns the new status or ErrTransitionNotAllowed.
func Transition(from, to Status) (Status, error) {
	if !CanTransition(from, to) {
		return from, errors.Wrapf(ErrTransitionNotAllowed, "%s -> %s", from, to)
	}
	return to, nil
}

// RiceScore is reach·impact·confidence / effort; a zero effort scores 0.
func RiceScore(reach, impact, confidence, effort float64) float64 {
	if effort == 0 {
		return 0
	}
	return reach * impact * confidence / effort
}
