package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/yndnr/streamgate-go/internal/cli/connection"
	"github.com/yndnr/streamgate-go/internal/cli/output"
	"github.com/yndnr/streamgate-go/internal/transfer"
)

const (
	defaultFilename  = "download.bin"
	progressInterval = 200 * time.Millisecond
	exitCancelled    = 130
)

// FetchCommand redeems a stream token and saves the bytes.
func FetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Aliases:   []string{"get"},
		Usage:     "Redeem a stream token and download the resource",
		ArgsUsage: "STREAM_TOKEN",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dest",
				Aliases: []string{"d"},
				Usage:   "Destination file, or - for stdout (default: server filename)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing destination file",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Do not draw a progress bar",
			},
		},
		Action: fetch,
	}
}

func fetch(c *cli.Context) error {
	secret := strings.TrimSpace(c.Args().First())
	if secret == "" {
		return fmt.Errorf("stream token required")
	}

	// The token is single-use; refuse a doomed destination before redeeming it.
	if dest := c.String("dest"); dest != "" && dest != "-" && !c.Bool("force") {
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("destination %s exists (use --force to overwrite)", dest)
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := connection.NewHTTPClient(ParseGlobalFlags(c).Server, "")
	resp, err := client.Stream(ctx, secret)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// A blocked body read does not observe ctx on every transport.
	release := context.AfterFunc(ctx, func() { resp.Body.Close() })
	defer release()

	dest := c.String("dest")
	if dest == "" {
		dest = responseFilename(resp)
	}

	var (
		sink    io.Writer
		partial string
	)
	if dest == "-" {
		sink = c.App.Writer
	} else {
		flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
		if c.Bool("force") {
			flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		}
		f, err := os.OpenFile(dest, flags, 0o644)
		if err != nil {
			return fmt.Errorf("open destination: %w", err)
		}
		defer f.Close()
		sink = f
		partial = dest
	}

	var bar *output.ProgressBar
	if !c.Bool("quiet") {
		bar = output.NewProgressBar(c.App.ErrWriter, filepath.Base(dest))
	}

	n, err := copyWithProgress(ctx, sink, resp.Body, resp.ContentLength, bar)
	if err == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		err = fmt.Errorf("incomplete transfer: got %d of %d bytes", n, resp.ContentLength)
	}
	if err != nil {
		if partial != "" {
			os.Remove(partial)
		}
		if ctx.Err() != nil {
			return cli.Exit("transfer cancelled", exitCancelled)
		}
		return err
	}

	if partial != "" {
		fmt.Fprintf(c.App.ErrWriter, "saved %s (%s)\n", partial, humanize.IBytes(uint64(n)))
	}
	return nil
}

// copyWithProgress copies src to dst, redrawing bar while bytes flow.
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, bar *output.ProgressBar) (int64, error) {
	meter := transfer.NewMeter(total, time.Now())
	done := make(chan struct{})
	stopped := make(chan struct{})

	if bar != nil {
		go func() {
			defer close(stopped)
			ticker := time.NewTicker(progressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					bar.Update(meter.Snapshot(now))
				}
			}
		}()
	} else {
		close(stopped)
	}

	n, err := io.Copy(&meteredWriter{w: dst, m: meter}, src)
	close(done)
	<-stopped

	if bar != nil {
		bar.Finish(meter.Snapshot(time.Now()))
	}
	if err != nil && ctx.Err() != nil && errors.Is(err, http.ErrBodyReadAfterClose) {
		err = ctx.Err()
	}
	return n, err
}

type meteredWriter struct {
	w io.Writer
	m *transfer.Meter
}

func (mw *meteredWriter) Write(p []byte) (int, error) {
	n, err := mw.w.Write(p)
	mw.m.Add(int64(n))
	return n, err
}

// responseFilename picks a safe local name from Content-Disposition.
func responseFilename(resp *http.Response) string {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return defaultFilename
	}
	name := filepath.Base(filepath.Clean("/" + params["filename"]))
	if name == "/" || name == "." || name == "" {
		return defaultFilename
	}
	return name
}
