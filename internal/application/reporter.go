package application

import (
	"fmt"
	"strings"

	"github.com/ericfisherdev/overridebot/internal/domain/model"
)

// DefaultOverrideCommand is the Prow command that marks a context as overridden.
const DefaultOverrideCommand = "/override"

// Reporter renders override candidates as a pull request comment.
type Reporter struct {
	command string
}

// NewReporter creates a Reporter emitting the given directive command.
// An empty command falls back to DefaultOverrideCommand.
func NewReporter(command string) *Reporter {
	if command = strings.TrimSpace(command); command == "" {
		command = DefaultOverrideCommand
	}
	return &Reporter{command: command}
}

// Format returns the comment body for the candidates, or false when there is
// nothing to override. Blocks keep candidate order.
func (r *Reporter) Format(candidates []model.Candidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	var b strings.Builder
	b.WriteString("Overriding unsuccessful lanes that already passed on another provider.\n")

	for _, c := range candidates {
		providers := make([]string, 0, len(c.JustifiedBy))
		for _, lane := range c.JustifiedBy {
			providers = append(providers, lane.Provider)
		}

		noun := "lane"
		if len(providers) > 1 {
			noun = "lanes"
		}

		fmt.Fprintf(&b, "\nThe %s %s succeeded for test group %s; overriding %s.\n",
			strings.Join(providers, ", "), noun, c.Lane.TestGroup, c.Lane.Name)
		fmt.Fprintf(&b, "%s %s\n", r.command, c.Lane.Name)
	}

	return b.String(), true
}
