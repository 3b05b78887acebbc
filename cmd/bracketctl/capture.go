package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"

	"github.com/moonlab/bracket/capture"
)

func progressLine(s capture.Snapshot) string {
	p := s.Progress
	line := fmt.Sprintf("%s  bracket %d/%d  frames %d/%d", s.Status,
		p.CurrentBracket, p.TotalBrackets, p.CompletedFrames, p.TotalFrames)
	if p.FailedFrames > 0 {
		line += fmt.Sprintf("  (%d failed)", p.FailedFrames)
	}
	return line
}

func printSnapshot(w io.Writer, s capture.Snapshot) {
	fmt.Fprintf(w, "capture %s\n", s.ID)
	fmt.Fprintf(w, "  %s\n", progressLine(s))
	fmt.Fprintf(w, "  directory: %s\n", s.SaveDirectory)
	fmt.Fprintf(w, "  started:   %s\n", s.StartTime.Format(time.RFC3339))
	if s.EndTime != nil {
		fmt.Fprintf(w, "  ended:     %s\n", s.EndTime.Format(time.RFC3339))
	}
	if len(s.Results) > 0 {
		fmt.Fprintf(w, "  files:     %d\n", len(s.Results))
	}
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}

func newSpinner(w io.Writer) (*yacspin.Spinner, error) {
	return yacspin.New(yacspin.Config{
		Writer:            w,
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " ",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
}

// follow waits for a capture to finish, with a spinner on a terminal
func follow(cmd *cobra.Command, c *client, id string, interval time.Duration) error {
	ctx := cmd.Context()
	spin, err := newSpinner(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if err := spin.Start(); err != nil {
		return err
	}
	snap, err := c.watch(ctx, id, interval, func(s capture.Snapshot) {
		spin.Message(progressLine(s))
	})
	if err == nil && snap.Status == capture.StatusCompleted {
		spin.StopMessage(progressLine(snap))
		spin.Stop()
	} else {
		spin.StopFailMessage(progressLine(snap))
		spin.StopFail()
	}
	if err != nil {
		return err
	}
	printSnapshot(cmd.OutOrStdout(), snap)
	if snap.Status != capture.StatusCompleted {
		return fmt.Errorf("capture %s finished %s", id, snap.Status)
	}
	return nil
}

func newSubmitCmd(c func() *client) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
		dir      string
	)
	cmd := &cobra.Command{
		Use:   "submit <plan.yml>",
		Short: "Submit a capture plan",
		Long: `Submit reads a capture plan from a YAML or JSON file and starts it on the
server.  The capture id is printed; with --watch the command waits for the
capture to finish and fails if it did not complete.`,
		Example: `  bracketctl submit sunset.yml --watch
  bracketctl submit sunset.yml --dir /data/2026-10-19/sunset`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := capture.ReadPlanFile(args[0])
			if err != nil {
				return err
			}
			if dir != "" {
				plan.SaveDirectory = dir
			}
			// catch mistakes before they reach the server
			if _, err := plan.Normalize(); err != nil {
				return err
			}
			cl := c()
			id, err := cl.submit(cmd.Context(), plan)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			if !watch {
				return nil
			}
			return follow(cmd, cl, id, interval)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "wait for the capture to finish")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "how often to poll while watching")
	cmd.Flags().StringVar(&dir, "dir", "", "override the plan's save_directory")
	return cmd
}

func newStatusCmd(c func() *client) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Show the status of a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := c()
			if watch {
				return follow(cmd, cl, args[0], interval)
			}
			snap, err := cl.status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "wait for the capture to finish")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "how often to poll while watching")
	return cmd
}

func newListCmd(c func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List captures, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := c().list(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", s.ID, s.StartTime.Format("2006-01-02 15:04:05"), progressLine(s))
			}
			return nil
		},
	}
}

func newStopCmd(c func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop a running capture after the frame in progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c().stop(cmd.Context(), args[0])
		},
	}
}

func newTestCmd(c func() *client) *cobra.Command {
	var shoot bool
	cmd := &cobra.Command{
		Use:   "test <plan.yml>",
		Short: "Check the brackets of a plan on the server",
		Long: `Test validates every bracket of a plan against the camera's limits.
With --shoot one test shot is taken per valid bracket, falling back to
the server's fallback exposure if the camera rejects the settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := capture.ReadPlanFile(args[0])
			if err != nil {
				return err
			}
			resp, err := c().test(cmd.Context(), plan.Brackets, shoot)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range resp.Results {
				mark := "ok"
				if !r.Valid {
					mark = "INVALID"
				}
				fmt.Fprintf(out, "%2d %-16s %s", r.Index, r.Name, mark)
				if r.Error != "" {
					fmt.Fprintf(out, "  %s", r.Error)
				}
				if r.Warnings != "" {
					fmt.Fprintf(out, "  warning: %s", r.Warnings)
				}
				if r.Message != "" {
					fmt.Fprintf(out, "  %s", r.Message)
				}
				fmt.Fprintln(out)
			}
			if !resp.Success {
				return fmt.Errorf("some brackets failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&shoot, "shoot", false, "take a test shot with each valid bracket")
	return cmd
}
