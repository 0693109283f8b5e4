package prompts

import (
	"fmt"
	"strings"
)

// ConfirmDisconnect asks the user to confirm removing a platform connection.
// Anything but an explicit yes is a refusal.
func (p *Prompter) ConfirmDisconnect(platformName string) bool {
	fmt.Fprintf(p.out, "⚠ This will remove the stored %s credentials\n", platformName)
	response, err := p.Line("Are you sure? [y/N]: ")
	if err != nil {
		return false
	}

	response = strings.ToLower(response)
	return response == "y" || response == "yes"
}
