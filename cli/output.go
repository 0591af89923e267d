package cli

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/steamvault/steamvault/logging"
)

var (
	successColor  = color.New(color.FgGreen)
	errorColor    = color.New(color.FgRed)
	warningColor  = color.New(color.FgYellow)
	progressColor = color.New(color.FgCyan)
	bannerColor   = color.New(color.FgMagenta, color.Bold)
	transferColor = color.New(color.FgBlue)
)

func tagColor(t logging.Tag) *color.Color {
	switch t {
	case logging.TagSuccess:
		return successColor
	case logging.TagError:
		return errorColor
	case logging.TagWarning:
		return warningColor
	case logging.TagProgress:
		return progressColor
	case logging.TagBanner:
		return bannerColor
	case logging.TagUpload, logging.TagDownload, logging.TagFile:
		return transferColor
	default:
		return nil
	}
}

// outputSink prints user-visible lines to stdout, colored by tag.
func (c *App) outputSink() logging.Sink {
	return func(line string) {
		if col := tagColor(logging.ParseTag(line)); col != nil {
			col.Fprintln(c.stdout(), line) //nolint:errcheck
			return
		}

		fmt.Fprintln(c.stdout(), line) //nolint:errcheck
	}
}
