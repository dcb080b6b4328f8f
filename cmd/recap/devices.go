package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/recap/internal/audio"
)

func newDevicesCmd(root *rootOptions) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices and show which one record would use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				cfg.Audio.Device = device
			}

			devices, err := audio.ListDevices()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tNAME\tCHANNELS\tRATE\tSOURCE")
			for _, d := range devices {
				fmt.Fprintf(w, "%d\t%s\t%d\t%.0f\t%s\n", d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate, d.Source)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			selected, err := audio.ResolveDevice(cfg.Audio.Device)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nrecord would use: %s\n", selected.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "device name to resolve (substring match)")
	return cmd
}
