package main

import (
	"fmt"

	"github.com/spf13/cobra"
	yml "gopkg.in/yaml.v2"

	"github.com/moonlab/bracket/capture"
	"github.com/moonlab/bracket/exposure"
)

func newEVCmd() *cobra.Command {
	var (
		iso      int
		aperture float64
		shutter  string
		target   float64
		priority string
	)
	cmd := &cobra.Command{
		Use:   "ev",
		Short: "Compute the EV100 of settings, or settings for an EV",
		Example: `  bracketctl ev --iso 100 --aperture 8 --shutter 1/125
  bracketctl ev --target 12 --priority shutter`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("target") {
				s, err := exposure.SettingsForEV(target, iso, exposure.Priority(priority), aperture)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}
			ev, err := exposure.CalculateEV(iso, aperture, shutter)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "EV %.2f\n", ev)
			return nil
		},
	}
	cmd.Flags().IntVar(&iso, "iso", 100, "ISO")
	cmd.Flags().Float64Var(&aperture, "aperture", exposure.ReferenceAperture, "f-number, or the preferred f-number with --target")
	cmd.Flags().StringVar(&shutter, "shutter", exposure.ReferenceISOShutter, "shutter speed, e.g. 1/125 or 2")
	cmd.Flags().Float64Var(&target, "target", 0, "solve for settings giving this EV100")
	cmd.Flags().StringVar(&priority, "priority", string(exposure.PriorityAperture), "aperture, shutter, or iso")
	return cmd
}

func newBracketsCmd() *cobra.Command {
	var (
		iso      int
		aperture float64
		shutter  string
		step     float64
		count    int
		priority string
		frames   int
		delay    float64
		mode     string
		asPlan   bool
	)
	cmd := &cobra.Command{
		Use:   "brackets",
		Short: "Generate an exposure ladder around base settings",
		Long: `Brackets prints count exposures spaced step EV apart around the base
settings.  With --plan the ladder is written as a capture plan in YAML,
ready to edit and submit.`,
		Example: `  bracketctl brackets --shutter 1/60 --step 1 --count 5
  bracketctl brackets --count 3 --frames 10 --plan > plan.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 || step <= 0 {
				return fmt.Errorf("count and step must be positive")
			}
			base := exposure.Settings{ISO: iso, Aperture: aperture, ShutterSpeed: shutter}
			brackets, err := exposure.GenerateBracketsByEV(base, step, count, exposure.Priority(priority))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asPlan {
				plan := capture.Plan{Mode: capture.Mode(mode), Brackets: capture.FromBrackets(brackets, frames, delay)}
				if _, err := plan.Normalize(); err != nil {
					return err
				}
				return yml.NewEncoder(out).Encode(plan)
			}
			for _, b := range brackets {
				fmt.Fprintf(out, "%-14s EV %6.2f  %s\n", b.Name, b.EV, b.Settings)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&iso, "iso", 100, "base ISO")
	cmd.Flags().Float64Var(&aperture, "aperture", exposure.ReferenceAperture, "base f-number")
	cmd.Flags().StringVar(&shutter, "shutter", exposure.ReferenceISOShutter, "base shutter speed")
	cmd.Flags().Float64Var(&step, "step", 1, "EV between brackets")
	cmd.Flags().IntVar(&count, "count", 3, "number of brackets")
	cmd.Flags().StringVar(&priority, "priority", string(exposure.PriorityAperture), "aperture, shutter, or iso")
	cmd.Flags().IntVar(&frames, "frames", 1, "frames per bracket, with --plan")
	cmd.Flags().Float64Var(&delay, "delay", 0, "seconds between frames, with --plan")
	cmd.Flags().StringVar(&mode, "mode", string(capture.ModeStandard), "standard or fast, with --plan")
	cmd.Flags().BoolVar(&asPlan, "plan", false, "print a capture plan instead of a table")
	return cmd
}
