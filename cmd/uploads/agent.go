package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/agentproto"
	"github.com/input-output-hk/catalyst-forge-libs/aws/uploads/errors"
)

const progressBarWidth = 30

type agentFlags struct {
	uri         string
	backend     string
	idleTimeout time.Duration
}

func newAgentCmd() *cobra.Command {
	var f agentFlags

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Drive a local upload Agent over its control channel",
		Long: `Send commands to an upload Agent and print the messages it reports.

Examples:
  uploads agent start ./dataset.tar --backend http://localhost:8000
  uploads agent pause 2~abcdef
  uploads agent cancel 2~abcdef`,
	}
	cmd.PersistentFlags().StringVar(&f.uri, "uri", agentproto.DefaultAgentURI, "Agent control channel URI")
	cmd.PersistentFlags().DurationVar(&f.idleTimeout, "idle-timeout", 30*time.Second, "give up when the Agent is silent this long")

	start := &cobra.Command{
		Use:   "start <file>",
		Short: "Start uploading a file and follow its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), f, agentproto.Start(args[0], f.backend), cmd.OutOrStdout(), true)
		},
	}
	start.Flags().StringVar(&f.backend, "backend", agentproto.DefaultBackendURL, "orchestrator URL handed to the Agent")

	cmd.AddCommand(start,
		controlCmd(&f, "pause", "Pause an upload", agentproto.Pause),
		controlCmd(&f, "resume", "Resume a paused upload", agentproto.Resume),
		controlCmd(&f, "cancel", "Cancel an upload", agentproto.Cancel),
	)
	return cmd
}

func controlCmd(f *agentFlags, use, short string, build func(string) agentproto.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <upload-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), *f, build(args[0]), cmd.OutOrStdout(), false)
		},
	}
}

func runAgent(ctx context.Context, f agentFlags, c agentproto.Command, out io.Writer, followUp bool) error {
	if err := c.Validate(); err != nil {
		return err
	}
	conn, err := agentproto.Dial(ctx, f.uri)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Send(ctx, c); err != nil {
		return err
	}
	if !followUp {
		fmt.Fprintf(out, "sent %s for upload %s\n", c.Action, c.UploadID)
		return nil
	}
	fmt.Fprintf(out, "upload of %s requested, waiting for progress\n", c.FilePath)
	return follow(ctx, conn, out, f.idleTimeout)
}

type messageSource interface {
	Next(ctx context.Context) (agentproto.Message, error)
}

// follow prints Agent messages until a terminal one arrives.
func follow(ctx context.Context, src messageSource, out io.Writer, idle time.Duration) error {
	for {
		nextCtx, cancel := context.WithTimeout(ctx, idle)
		msg, err := src.Next(nextCtx)
		cancel()
		switch {
		case err == nil:
		case errors.IsInvalidInput(err):
			fmt.Fprintf(out, "\nignoring message: %v\n", err)
			continue
		case stderrors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return fmt.Errorf("no messages received for %s, the upload may have stalled", idle)
		case agentproto.IsClosed(err):
			return fmt.Errorf("agent closed the channel before the upload finished")
		default:
			return err
		}

		switch m := msg.(type) {
		case agentproto.ConfigMessage:
			fmt.Fprintf(out, "agent config: chunk size %d MB, %d threads\n", m.ChunkSizeMB, m.MaxThreads)
		case agentproto.ProgressMessage:
			fmt.Fprintf(out, "\r%s", progressLine(m))
		case agentproto.ChunkMessage:
			if m.Status == agentproto.ChunkFailed {
				fmt.Fprintf(out, "\npart %d failed, the agent will retry\n", m.PartNumber)
			}
		case agentproto.StatusMessage:
			fmt.Fprintf(out, "\nstatus: %s %s\n", m.Status, m.Message)
			if m.Terminal() {
				fmt.Fprintf(out, "upload %s completed\n", m.UploadID)
				return nil
			}
		case agentproto.ErrorMessage:
			return fmt.Errorf("agent error [%s]: %s", m.Code, m.Error)
		}
	}
}

func progressLine(m agentproto.ProgressMessage) string {
	pct := min(max(m.Percent, 0), 100)
	filled := int(progressBarWidth * pct / 100)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
	eta := time.Duration(m.ETA) * time.Second
	return fmt.Sprintf("[%s] %5.1f%% | %6.1f MB/s | ETA %02d:%02d:%02d | parts %d/%d",
		bar, pct, m.Speed/(1<<20),
		int(eta.Hours()), int(eta.Minutes())%60, int(eta.Seconds())%60,
		m.CompletedParts, m.TotalParts)
}
