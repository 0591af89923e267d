package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// confirm asks a yes/no question on stdout. Without a terminal the answer is always no.
func (c *App) confirm(prompt string) (bool, error) {
	if !c.isTerminal() {
		return false, nil
	}

	fmt.Fprintf(c.stdout(), "%v [y/N]: ", prompt) //nolint:errcheck

	line, err := bufio.NewReader(c.stdinReader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "unable to read answer")
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
