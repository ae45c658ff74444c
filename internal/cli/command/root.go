package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/streamgate-go/internal/cli/connection"
	"github.com/yndnr/streamgate-go/internal/cli/output"
	"github.com/yndnr/streamgate-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "streamgate-cli",
		Usage:   "StreamGate command-line client",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GrantCommand(),
			TokensCommand(),
			QuotaCommand(),
			FetchCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "StreamGate server address (e.g., localhost:5080)",
			EnvVars: []string{"STREAMGATE_SERVER"},
			Value:   "localhost:5080",
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Bearer JWT for control commands",
			EnvVars: []string{"STREAMGATE_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server string
	Token  string
	Output output.Format
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	f, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Server: c.String("server"),
		Token:  c.String("token"),
		Output: f,
	}
}

// authenticatedClient returns a client for control commands.
func authenticatedClient(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	if flags.Token == "" {
		return nil, fmt.Errorf("a bearer token is required (--token or STREAMGATE_TOKEN)")
	}
	return connection.NewHTTPClient(flags.Server, flags.Token), nil
}

// render writes data to the app writer in the selected format.
func render(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(c.App.Writer, data)
}
