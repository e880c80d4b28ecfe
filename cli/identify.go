package cli

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// IdentifyCmd shows which configured importer claims each file, without
// extracting anything.
type IdentifyCmd struct {
	Files []string `help:"Files to identify." arg:"" type:"existingfile"`
}

func (cmd *IdentifyCmd) Run(ctx *kong.Context, globals *Globals) error {
	_, importers, err := LoadConfig(globals.Config)
	if err != nil {
		return err
	}

	unclaimed := 0
	for _, file := range cmd.Files {
		imp := identifyImporter(importers, file)
		if imp == nil {
			printError(ctx.Stdout, fmt.Sprintf("%s: no importer", file))
			unclaimed++
			continue
		}
		printSuccess(ctx.Stdout, fmt.Sprintf("%s: %s (%s)", pathStyle.Render(file), imp.Name(), imp.Account()))
	}

	if unclaimed > 0 {
		return NewCommandError(1)
	}
	return nil
}
