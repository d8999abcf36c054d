package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/drydock-sh/drydock/internal/errors"
)

// MaxBranchNameLength is the maximum length accepted for a planned branch
// name, including any configured prefix.
const MaxBranchNameLength = 100

// validBranchNameRegex matches valid git branch name characters.
// Git branch names cannot contain space, ~, ^, :, ?, *, [, \, or control
// characters, and cannot start with - or end with .lock.
var validBranchNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9/_.-]*$`)

// ValidateBranchName checks whether a branch name is acceptable to git.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name is required")
	}
	if len(branch) > MaxBranchNameLength {
		return fmt.Errorf("branch name too long (max %d characters)", MaxBranchNameLength)
	}
	if strings.HasPrefix(branch, "-") {
		return fmt.Errorf("branch name cannot start with '-'")
	}
	if strings.HasSuffix(branch, ".lock") {
		return fmt.Errorf("branch name cannot end with '.lock'")
	}
	if strings.Contains(branch, "..") {
		return fmt.Errorf("branch name cannot contain '..'")
	}
	if !validBranchNameRegex.MatchString(branch) {
		return fmt.Errorf("branch name contains invalid characters (use letters, numbers, /, _, ., -)")
	}
	return nil
}

// SessionSpec is a spawnable session derived from a plan. The spawning
// collaborator owns process and worktree creation; the spec carries
// everything it needs.
type SessionSpec struct {
	ID          string
	ModulePath  string
	Description string
	Branch      string
	Type        SessionType
	Prompt      string
}

// Materialize turns the plan into session specs with generated ids and
// validated branch names. branchPrefix, when non-empty, is prepended to
// every branch (e.g. "drydock/"). Duplicate branch names within one plan
// are rejected since the branch is the session's identity key.
func (p *Plan) Materialize(branchPrefix string) ([]SessionSpec, error) {
	specs := make([]SessionSpec, 0, len(p.Sessions))
	seen := make(map[string]bool, len(p.Sessions))

	for _, s := range p.Sessions {
		branch := branchPrefix + s.BranchName
		if err := ValidateBranchName(branch); err != nil {
			return nil, errors.PlanInvalidBranch(branch, err)
		}
		if seen[branch] {
			return nil, errors.E(errors.Op("plan.Materialize"), errors.KindPlan,
				fmt.Sprintf("duplicate branch name %q", branch))
		}
		seen[branch] = true

		specs = append(specs, SessionSpec{
			ID:          uuid.NewString(),
			ModulePath:  p.ModulePath,
			Description: s.Description,
			Branch:      branch,
			Type:        s.SessionType.normalize(),
			Prompt:      s.Prompt,
		})
	}
	return specs, nil
}
