package command

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/streamgate-go/internal/cli/output"
	"github.com/yndnr/streamgate-go/internal/server/httpserver/handler"
)

// GrantCommand issues a stream token.
func GrantCommand() *cli.Command {
	return &cli.Command{
		Name:    "grant",
		Aliases: []string{"issue"},
		Usage:   "Issue a single-use stream token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "source-url",
				Aliases:  []string{"u"},
				Usage:    "Upstream URL of the resource",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "format",
				Aliases:  []string{"f"},
				Usage:    "Format ID of the rendition (e.g., 1080p-mp4)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Title used for the download filename",
			},
			&cli.DurationFlag{
				Name:  "ttl",
				Usage: "Token lifetime (e.g., 5m); server default when unset",
			},
		},
		Action: grantIssue,
	}
}

func grantIssue(c *cli.Context) error {
	client, err := authenticatedClient(c)
	if err != nil {
		return err
	}

	req := handler.IssueTokenRequest{
		SourceURL: c.String("source-url"),
		FormatID:  c.String("format"),
		Title:     c.String("title"),
	}
	if ttl := c.Duration("ttl"); ttl > 0 {
		req.TTLSeconds = int64(ttl / time.Second)
		if req.TTLSeconds == 0 {
			return fmt.Errorf("--ttl must be at least 1s")
		}
	}

	var resp handler.IssueTokenResponse
	if err := client.Post(c.Context, "/v1/tokens", req, &resp); err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, resp)
	}
	return render(c, output.KV{
		{"token", resp.Token},
		{"token_id", resp.TokenID},
		{"expires_at", resp.ExpiresAt.Local().Format(time.RFC3339)},
		{"resource", resp.ResourceHandle},
	})
}

// TokensCommand lists the caller's tokens.
func TokensCommand() *cli.Command {
	return &cli.Command{
		Name:    "tokens",
		Aliases: []string{"ls"},
		Usage:   "List your stream tokens",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   100,
				Usage:   "Maximum number of tokens (max 500)",
			},
		},
		Action: tokensList,
	}
}

// tokenTable renders a token list as a table.
type tokenTable []handler.TokenInfo

func (t tokenTable) Headers() []string {
	return []string{"TOKEN ID", "STATE", "FORMAT", "CREATED", "EXPIRES"}
}

func (t tokenTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, info := range t {
		rows = append(rows, []string{
			info.TokenID,
			string(info.State),
			info.Resource.FormatID,
			info.CreatedAt.Local().Format(time.DateTime),
			info.ExpiresAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func tokensList(c *cli.Context) error {
	client, err := authenticatedClient(c)
	if err != nil {
		return err
	}

	limit := c.Int("limit")
	if limit < 1 {
		return fmt.Errorf("--limit must be positive")
	}

	var resp handler.ListTokensResponse
	if err := client.Get(c.Context, "/v1/tokens?limit="+url.QueryEscape(strconv.Itoa(limit)), &resp); err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, resp)
	}
	if resp.Count == 0 {
		fmt.Fprintln(c.App.Writer, "No tokens.")
		return nil
	}
	return render(c, tokenTable(resp.Tokens))
}

// QuotaCommand shows the caller's quota usage.
func QuotaCommand() *cli.Command {
	return &cli.Command{
		Name:   "quota",
		Usage:  "Show your issuance quota and active streams",
		Action: quotaShow,
	}
}

func quotaShow(c *cli.Context) error {
	client, err := authenticatedClient(c)
	if err != nil {
		return err
	}

	var resp handler.QuotaResponse
	if err := client.Get(c.Context, "/v1/quota", &resp); err != nil {
		return err
	}

	if ParseGlobalFlags(c).Output != output.FormatTable {
		return render(c, resp)
	}
	kv := output.KV{
		{"tier", string(resp.Tier)},
		{"active", fmt.Sprintf("%d/%d", resp.Active, resp.Policy.MaxConcurrent)},
	}
	if q := resp.Quota; q != nil {
		kv = append(kv,
			[2]string{"hourly", fmt.Sprintf("%d/%d (resets %s)", q.HourlyUsed, q.HourlyLimit, q.HourlyReset.Local().Format(time.DateTime))},
			[2]string{"daily", fmt.Sprintf("%d/%d (resets %s)", q.DailyUsed, q.DailyLimit, q.DailyReset.Local().Format(time.DateTime))},
		)
	}
	return render(c, kv)
}
