/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/DaniruKun/aruco-relay/relay"
)

// boardCmd tracks one ChArUco board
var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Track a ChArUco board",
	Long: `Detects the markers of a ChArUco board, interpolates the chessboard
corners between them and estimates the board pose. Every --every frames the
board pose is published.`,
	Example: `  aruco-relay board -w 5 -h 7 --sl 0.033 --ml 0.025 -d 11 -c camera.yml -p tcp://127.0.0.1:5000 --rs`,
	Args:    usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		o := producerOptions(cmd, relay.ModeBoard)
		o.SquaresX, _ = f.GetInt("squares-x")
		o.SquaresY, _ = f.GetInt("squares-y")
		o.SquareLength, _ = f.GetFloat64("sl")
		o.MarkerLength, _ = f.GetFloat64("ml")
		o.Refind, _ = f.GetBool("rs")
		return runProducer(cmd, o)
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)

	// -h is the board height here, so help is only --help. Registering it
	// first keeps cobra from claiming the shorthand.
	boardCmd.Flags().Bool("help", false, "help for board")
	addProducerFlags(boardCmd)
	boardCmd.Flags().IntP("squares-x", "w", 5, "Number of squares in X direction")
	boardCmd.Flags().IntP("squares-y", "h", 7, "Number of squares in Y direction")
	boardCmd.Flags().Float64("sl", 0.04, "Square side length in meters")
	boardCmd.Flags().Float64("ml", 0.02, "Marker side length in meters")
	boardCmd.Flags().Bool("rs", false, "Refind undetected markers against the board layout")
}
