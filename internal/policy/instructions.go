package policy

import (
	"fmt"
	"strings"
)

// Verdict tokens the check stages parse out of evaluator replies.
const (
	TokenBiasLikely     = "Bias likely"
	TokenNoBias         = "No bias"
	TokenEthical        = "ETHICAL"
	TokenUnethical      = "UNETHICAL"
	TokenViolatesPrefix = "Violates Guideline"
)

func (p Policy) BiasInstruction() string {
	var b strings.Builder
	b.WriteString("You are a fairness monitor for consumer lending. ")
	b.WriteString("You receive a summary of loan applications with their demographic groups and prior risk flags. ")
	if len(p.Bias.WatchGroups) > 0 {
		fmt.Fprintf(&b, "Pay particular attention to these groups: %s. ", strings.Join(p.Bias.WatchGroups, ", "))
	}
	fmt.Fprintf(&b, "For each distinct demographic group in the summary, answer one line: %q when outcomes look skewed against the group, otherwise %q.", BiasClause("<group>", true), BiasClause("<group>", false))
	return b.String()
}

// BiasClause is the per-group bias verdict, e.g. "Bias likely for: group_A".
func BiasClause(group string, likely bool) string {
	if likely {
		return TokenBiasLikely + " for: " + group
	}
	return TokenNoBias + " for: " + group
}

func (p Policy) EthicsInstruction() string {
	var b strings.Builder
	b.WriteString("You review loan applications and the criteria used to decide them against these ethical guidelines:\n")
	for i, g := range p.Ethics.Guidelines {
		fmt.Fprintf(&b, "Guideline %d: %s\n", i+1, g)
	}
	if len(p.Ethics.ProhibitedCriteria) > 0 {
		fmt.Fprintf(&b, "These criteria are never acceptable: %s.\n", strings.Join(p.Ethics.ProhibitedCriteria, ", "))
	}
	fmt.Fprintf(&b, "Reply %s or %s. When unethical, list each breach as %q followed by its number and a short explanation.", TokenEthical, TokenUnethical, TokenViolatesPrefix+" <n>")
	return b.String()
}

func (p Policy) ComplianceInstruction() string {
	var b strings.Builder
	b.WriteString("You audit proposed loan decisions for regulatory compliance. Applicable regulations:\n")
	for _, r := range p.Regulations {
		fmt.Fprintf(&b, "- %s (%s)\n", r.Name, r.Rule)
	}
	b.WriteString("A decision whose reason is discriminatory_criterion is not compliant with anti-discrimination rules.")
	return b.String()
}

// IntakeInstruction is the context for the first-pass risk note written at intake.
func (p Policy) IntakeInstruction() string {
	return "You triage incoming loan application submissions. Summarise in one or two sentences any risk signals in the submission."
}
