/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/DaniruKun/aruco-relay/relay"
)

// singleCmd tracks every detected marker on its own
var singleCmd = &cobra.Command{
	Use:   "single",
	Short: "Track individual markers",
	Long: `Detects markers of one dictionary and estimates a pose for every marker
found. Every --every frames one CameraPose message per marker is published.`,
	Example: `  aruco-relay single -d 10 -c camera.yml -l 0.195 --dp detector.yml -p tcp://127.0.0.1:5000 --gui`,
	Args:    usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		o := producerOptions(cmd, relay.ModeSingle)
		o.MarkerLength, _ = cmd.Flags().GetFloat64("length")
		return runProducer(cmd, o)
	},
}

func init() {
	rootCmd.AddCommand(singleCmd)

	addProducerFlags(singleCmd)
	singleCmd.Flags().Float64P("length", "l", 0.1, "Marker side length in meters")
}
