package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/streamgate-go/internal/cli/output"
	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
)

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			info := buildinfo.Get()
			if ParseGlobalFlags(c).Output != output.FormatTable {
				return render(c, info)
			}
			return render(c, output.KV{
				{"version", info.Version},
				{"commit", info.Commit},
				{"built", info.BuildTime},
				{"go", info.GoVersion},
			})
		},
	}
}
