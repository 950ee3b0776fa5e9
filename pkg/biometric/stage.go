package biometric

import "fmt"

// Stage is a step of the per-request state machine.
type Stage int

const (
	StageFetching Stage = iota + 1
	StagePreprocessing
	StageVerifying
	StageCleanup
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageFetching:
		return "fetching"
	case StagePreprocessing:
		return "preprocessing"
	case StageVerifying:
		return "verifying"
	case StageCleanup:
		return "cleanup"
	case StageDone:
		return "done"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}
