package wizard

import (
	"os"
	"path/filepath"
)

// Phase is the wizard step a draft should resume at.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseNaming
	PhaseMembers
	PhaseSchemes
	PhaseReview
	PhaseDeployed
)

// String returns the machine-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseNaming:
		return "naming"
	case PhaseMembers:
		return "members"
	case PhaseSchemes:
		return "schemes"
	case PhaseReview:
		return "review"
	case PhaseDeployed:
		return "deployed"
	default:
		return "unknown"
	}
}

// FriendlyName is the label shown in the status board.
func (p Phase) FriendlyName() string {
	switch p {
	case PhaseNone:
		return "Not started"
	case PhaseNaming:
		return "Name your organization"
	case PhaseMembers:
		return "Add founding members"
	case PhaseSchemes:
		return "Configure schemes"
	case PhaseReview:
		return "Review & deploy"
	case PhaseDeployed:
		return "Deployed"
	default:
		return "Unknown"
	}
}

// Next returns the phase after p. PhaseDeployed is terminal.
func (p Phase) Next() Phase {
	if p >= PhaseDeployed {
		return PhaseDeployed
	}
	return p + 1
}

// IsResumable reports whether a draft in this phase can be continued.
func (p Phase) IsResumable() bool {
	return p > PhaseNone && p < PhaseDeployed
}

// DetectPhase inspects the draft directory and returns the step the user
// should continue with. Files are checked from the latest step backwards so
// a crash mid-way resumes at the first unfinished step.
func DetectPhase(dir string) Phase {
	switch {
	case fileExists(dir, MarkerDeployed):
		return PhaseDeployed
	case fileExists(dir, FileParams), fileExists(dir, FileSchemes):
		return PhaseReview
	case fileExists(dir, FileMembers):
		return PhaseSchemes
	case fileExists(dir, FileNaming):
		return PhaseMembers
	case fileExists(dir, FileMeta):
		return PhaseNaming
	default:
		return PhaseNone
	}
}

func fileExists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && !info.IsDir()
}
