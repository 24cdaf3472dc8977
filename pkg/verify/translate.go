package verify

import (
	"strings"

	"github.com/appforge/forge/pkg/models"
)

// translations maps diagnostic codes to plain-language sentences shown
// to the user while repair runs.
var translations = map[string]string{
	// Type-checker codes
	"TS2307": "A file imports something that doesn't exist yet — I'll create it or fix the import path.",
	"TS2304": "The code references a name that was never defined — I'll add the missing definition.",
	"TS2322": "A value is being used where a different type is expected — I'll align the types.",
	"TS2339": "The code accesses a property that isn't on that object — I'll fix the property name or type.",
	"TS2345": "A function is being called with the wrong kind of argument — I'll correct the call.",
	"TS2551": "A property name is misspelled — I'll fix the typo.",
	"TS2554": "A function is called with the wrong number of arguments — I'll fix the call.",
	"TS6133": "Something is imported or declared but never used — I'll remove the dead code.",
	"TS7006": "A parameter is missing a type annotation — I'll add one.",
	"TS1005": "There's a syntax error (a missing bracket or semicolon) — I'll repair the file.",
	"TS17008": "A JSX tag isn't closed properly — I'll fix the markup.",

	// Lint rule IDs
	"no-unused-vars":                    "Some variables are defined but never used — I'll clean them up.",
	"@typescript-eslint/no-unused-vars": "Some variables are defined but never used — I'll clean them up.",
	"no-undef":                          "The code uses a variable that was never declared — I'll define it.",
	"react-hooks/rules-of-hooks":        "A React hook is called in the wrong place — I'll move it to the top level of the component.",
	"react-hooks/exhaustive-deps":       "A React hook is missing a dependency — I'll complete the dependency list.",
	"react/jsx-key":                     "A list is rendered without keys — I'll add stable keys.",
	"no-dupe-keys":                      "An object defines the same key twice — I'll remove the duplicate.",
}

// maxTranslations caps the friendly list at a digestible size.
const maxTranslations = 5

// Translate maps verification errors to a deduplicated list of at most
// five plain-language sentences. Unrecognized codes are skipped.
func Translate(errs *models.VerificationErrors) []string {
	if errs == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(sentence string) {
		if sentence == "" || seen[sentence] || len(out) >= maxTranslations {
			return
		}
		seen[sentence] = true
		out = append(out, sentence)
	}

	for _, line := range errs.TscErrors {
		add(translations[TscErrorCode(line)])
	}
	for range errs.MissingImportErrors {
		add("A file imports an asset that doesn't exist yet — I'll create a placeholder for it.")
	}
	for _, lr := range errs.LintResults {
		for _, msg := range lr.Messages {
			add(translations[msg.RuleID])
		}
	}
	return out
}

// ClassifyErrorStrategies inspects the error mix for one file and
// returns the repair strategy classes present: syntax, import, type,
// unused.
func ClassifyErrorStrategies(fileErrors []string, lint []models.LintMessage) []string {
	classes := make(map[string]bool)
	for _, line := range fileErrors {
		code := TscErrorCode(line)
		switch {
		case code == "TS1005" || code == "TS17008" || strings.HasPrefix(code, "TS1"):
			classes["syntax"] = true
		case code == "TS2307" || code == "TS2305":
			classes["import"] = true
		case code == "TS6133":
			classes["unused"] = true
		case code != "":
			classes["type"] = true
		default:
			// Missing-import scanner lines have no TS code.
			classes["import"] = true
		}
	}
	for _, msg := range lint {
		switch msg.RuleID {
		case "no-unused-vars", "@typescript-eslint/no-unused-vars":
			classes["unused"] = true
		case "no-undef":
			classes["type"] = true
		default:
			if msg.Severity >= 2 {
				classes["type"] = true
			}
		}
	}

	ordered := []string{"syntax", "import", "type", "unused"}
	var out []string
	for _, c := range ordered {
		if classes[c] {
			out = append(out, c)
		}
	}
	return out
}
