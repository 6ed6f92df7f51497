/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"

	"github.com/DaniruKun/aruco-relay/imgproc"
	"github.com/DaniruKun/aruco-relay/publish"
	"github.com/DaniruKun/aruco-relay/relay"
	"github.com/DaniruKun/aruco-relay/transport"
	"github.com/DaniruKun/aruco-relay/utils"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aruco-relay",
	Short: "ArUco Relay",
	Long: `Tracks ArUco markers or a ChArUco board in a video stream, estimates the
camera pose against them and relays it to a consumer over a ZeroMQ PAIR socket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

// exitCode is 0 on success and on usage or configuration errors, which are
// reported before anything is opened, and 1 otherwise.
func exitCode(err error) int {
	if err == nil || errors.Is(err, relay.ErrConfig) {
		return 0
	}
	return 1
}

func usageError(err error) error {
	return fmt.Errorf("%w: %w", relay.ErrConfig, err)
}

// usageArgs marks positional argument errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Int("every", publish.DefaultEvery, "Publish poses and timing diagnostics every N frames")
	rootCmd.PersistentFlags().Int("max-per-tick", publish.DefaultMaxPerTick, "Maximum pose messages per publishing frame (0 = no limit)")
	rootCmd.PersistentFlags().BoolP("gui", "g", false, "Show GUI with preview")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return nil, fmt.Errorf("%w: invalid log level %q", relay.ErrConfig, name)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// addProducerFlags registers the flags shared by the tracking commands.
func addProducerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("dictionary", "d", 0, "Marker dictionary: "+utils.DictionaryHelp())
	cmd.Flags().StringP("camera-params", "c", "", "Camera intrinsics file, pose estimation is skipped without it")
	cmd.Flags().String("dp", "", "Detector parameters file")
	cmd.Flags().StringP("endpoint", "p", "", "Consumer endpoint, e.g. tcp://127.0.0.1:5000")
	cmd.Flags().StringP("video", "v", "", "Input video file, the camera is used when omitted")
	cmd.Flags().Int("ci", 0, "Camera device index")
	cmd.Flags().BoolP("show-rejected", "r", false, "Outline rejected marker candidates")
}

// producerOptions reads the shared producer flags.
func producerOptions(cmd *cobra.Command, mode relay.Mode) relay.Options {
	f := cmd.Flags()
	o := relay.Options{Mode: mode, Dial: transport.DefaultDialOptions()}
	o.DictionaryID, _ = f.GetInt("dictionary")
	o.CalibrationPath, _ = f.GetString("camera-params")
	o.DetectorParamsPath, _ = f.GetString("dp")
	o.Endpoint, _ = f.GetString("endpoint")
	o.VideoPath, _ = f.GetString("video")
	o.CameraID, _ = f.GetInt("ci")
	o.ShowRejected, _ = f.GetBool("show-rejected")
	o.Every, _ = f.GetInt("every")
	o.MaxPerTick, _ = f.GetInt("max-per-tick")
	return o
}

// runProducer runs a tracking command on gocv frames until the video ends,
// escape is pressed in the preview, or the process is interrupted.
func runProducer(cmd *cobra.Command, o relay.Options) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	showGUI, _ := cmd.Flags().GetBool("gui")

	config := imgproc.Config{
		VideoPath:    o.VideoPath,
		CameraID:     o.CameraID,
		ShowGUI:      showGUI,
		ShowRejected: o.ShowRejected,
		WindowName:   "out",
	}
	open := func(s *relay.Setup) (relay.Vision[gocv.Mat], error) {
		t, err := imgproc.Open(s, config, logger)
		if err != nil {
			return nil, err
		}
		return t, nil
	}

	ctx, stop := interruptContext(cmd)
	defer stop()

	_, err = relay.Produce[gocv.Mat](ctx, o, open, relay.DialPair(o.Dial), logger)
	return err
}

// interruptContext is cancelled on SIGINT or SIGTERM.
func interruptContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}
