package models

import (
	"errors"
	"fmt"
)

// Stage — фаза конвейера.
type Stage int

const (
	StageUpload Stage = iota
	StageAnalyze
	StageGenerate
	StageFindPlaces
)

// Stages — все фазы в порядке исполнения.
var Stages = [...]Stage{StageUpload, StageAnalyze, StageGenerate, StageFindPlaces}

func (s Stage) String() string {
	switch s {
	case StageUpload:
		return "upload"
	case StageAnalyze:
		return "analyze"
	case StageGenerate:
		return "generate"
	case StageFindPlaces:
		return "find_places"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Stage) UnmarshalText(b []byte) error {
	for _, st := range Stages {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}

	return fmt.Errorf("unknown stage %q", b)
}

// StageStatus — статус фазы.
type StageStatus int

const (
	StatusWaiting StageStatus = iota
	StatusCurrent
	StatusCompleted
	StatusError
)

func (s StageStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusCurrent:
		return "current"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s StageStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *StageStatus) UnmarshalText(b []byte) error {
	for _, st := range []StageStatus{StatusWaiting, StatusCurrent, StatusCompleted, StatusError} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}

	return fmt.Errorf("unknown stage status %q", b)
}

// StageState — снимок статуса одной фазы.
type StageState struct {
	Stage  Stage       `json:"stage"`
	Status StageStatus `json:"status"`
}

// ErrIllegalTransition — переход, запрещённый линейной машиной состояний.
var ErrIllegalTransition = errors.New("illegal stage transition")

// Progress — линейная машина состояний конвейера.
// Нулевое значение: все фазы Waiting. Не потокобезопасна: принадлежит одному прогону.
type Progress struct {
	states [len(Stages)]StageStatus
}

// Start переводит фазу Waiting -> Current. Предыдущая фаза должна быть Completed.
func (p *Progress) Start(s Stage) error {
	if err := p.check(s); err != nil {
		return err
	}

	if p.states[s] != StatusWaiting {
		return fmt.Errorf("%w: %s is %s", ErrIllegalTransition, s, p.states[s])
	}

	if s > StageUpload && p.states[s-1] != StatusCompleted {
		return fmt.Errorf("%w: %s before %s completed", ErrIllegalTransition, s, s-1)
	}

	p.states[s] = StatusCurrent

	return nil
}

// Complete переводит фазу Current -> Completed.
func (p *Progress) Complete(s Stage) error {
	return p.finish(s, StatusCompleted)
}

// Fail переводит фазу Current -> Error.
func (p *Progress) Fail(s Stage) error {
	return p.finish(s, StatusError)
}

// Status возвращает текущий статус фазы.
func (p *Progress) Status(s Stage) StageStatus {
	if p.check(s) != nil {
		return StatusWaiting
	}

	return p.states[s]
}

// Snapshot — копия статусов в порядке исполнения.
func (p *Progress) Snapshot() []StageState {
	out := make([]StageState, 0, len(Stages))
	for _, s := range Stages {
		out = append(out, StageState{Stage: s, Status: p.states[s]})
	}

	return out
}

func (p *Progress) finish(s Stage, to StageStatus) error {
	if err := p.check(s); err != nil {
		return err
	}

	if p.states[s] != StatusCurrent {
		return fmt.Errorf("%w: %s is %s, want current", ErrIllegalTransition, s, p.states[s])
	}

	p.states[s] = to

	return nil
}

func (p *Progress) check(s Stage) error {
	if s < StageUpload || s > StageFindPlaces {
		return fmt.Errorf("%w: unknown %s", ErrIllegalTransition, s)
	}

	return nil
}
