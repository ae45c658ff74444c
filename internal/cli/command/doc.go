// Package command provides CLI command definitions for streamgate-cli.
//
// It uses urfave/cli/v2 for command parsing. Control commands (grant,
// tokens, quota) authenticate with a bearer JWT; fetch only needs the
// stream token it redeems.
package command
