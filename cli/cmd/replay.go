package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tessellary/ideastream/transcript"
	"github.com/tessellary/ideastream/types"
)

// ReplayCommand returns the replay command, which feeds a recorded
// transcript back through the pipeline instead of a live endpoint.
func ReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Replay a recorded generation transcript",
		ArgsUsage: "<transcript-file>",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "pace",
				Usage: "Reproduce the original arrival timing",
			},
			&cli.Float64Flag{
				Name:  "speed",
				Usage: "Timing multiplier for --pace (2 = twice as fast)",
				Value: 1,
			},
		}, StreamFlags()...),
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("replay requires exactly one transcript file", exitInvalidInput)
	}
	path := c.Args().First()

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot open transcript: %v", err), exitInvalidInput)
	}
	defer f.Close()

	tr, err := transcript.NewReader(f)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid transcript: %v", err), exitInvalidInput)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitInvalidInput)
	}

	hdr := tr.Header()
	req := types.Request{
		Title:      firstNonEmpty(hdr.Title, "replayed run"),
		Hypothesis: "replayed from " + path,
		Model:      firstNonEmpty(hdr.Model, "unknown"),
		Provider:   firstNonEmpty(hdr.Provider, "unknown"),
	}

	opener := replayOpener{
		reader: tr,
		opts: transcript.ReplayOptions{
			Pace:  c.Bool("pace"),
			Speed: c.Float64("speed"),
		},
	}
	return executeStream(c, cfg, opener, req, nil)
}

// replayOpener serves a transcript as the generation stream. Single-use:
// the underlying reader is consumed by the first open.
type replayOpener struct {
	reader *transcript.Reader
	opts   transcript.ReplayOptions
}

func (o replayOpener) Open(context.Context, *types.Request) (io.ReadCloser, error) {
	return transcript.NewReplayStream(o.reader, o.opts), nil
}
