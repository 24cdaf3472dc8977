package models

// LintMessage is one normalized diagnostic from the linter.
type LintMessage struct {
	RuleID   string `json:"ruleId"`
	Severity int    `json:"severity"` // 1 = warning, 2 = error
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// LintResult groups lint diagnostics for one file.
type LintResult struct {
	Filepath     string        `json:"filepath"`
	Messages     []LintMessage `json:"messages"`
	ErrorCount   int           `json:"errorCount"`
	WarningCount int           `json:"warningCount"`
}

// VerificationErrors carries everything Verify found for Repair to fix.
// Missing-import errors are folded in alongside type-check output because
// the repair strategies treat them the same way.
type VerificationErrors struct {
	LintResults         []LintResult `json:"lintResults"`
	TscErrors           []string     `json:"tscErrors"`
	MissingImportErrors []string     `json:"missingImportErrors"`
}

// TotalErrorCount is the regression metric: lint errors plus type-check
// and missing-import errors. Warnings do not count.
func (v *VerificationErrors) TotalErrorCount() int {
	if v == nil {
		return 0
	}
	n := len(v.TscErrors) + len(v.MissingImportErrors)
	for _, r := range v.LintResults {
		n += r.ErrorCount
	}
	return n
}

// IsClean reports whether verification passed outright.
func (v *VerificationErrors) IsClean() bool {
	if v == nil {
		return true
	}
	if len(v.TscErrors) > 0 || len(v.MissingImportErrors) > 0 {
		return false
	}
	for _, r := range v.LintResults {
		if r.ErrorCount > 0 {
			return false
		}
	}
	return true
}
