/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DaniruKun/aruco-relay/relay"
	"github.com/DaniruKun/aruco-relay/transport"
)

// consumeCmd is the receiving end of the pose link
var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Print the poses relayed by a tracker",
	Long: `Binds a ZeroMQ PAIR socket and prints every message received on it with a
timestamp until interrupted.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		endpoint, _ := cmd.Flags().GetString("bind")
		decode, _ := cmd.Flags().GetBool("decode")
		if err := transport.ValidateEndpoint(endpoint); err != nil {
			return fmt.Errorf("%w: %w", relay.ErrConfig, err)
		}

		ctx, stop := interruptContext(cmd)
		defer stop()

		sock, err := transport.Listen(ctx, endpoint)
		if err != nil {
			return err
		}
		defer sock.Close()
		logger.Info("waiting for poses", "endpoint", endpoint, "addr", sock.Addr())

		c := &relay.Consumer{Out: os.Stdout, Decode: decode, Logger: logger}
		n, err := c.Run(ctx, sock)
		logger.Info("consumer stopped", "messages", n)
		return err
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)

	consumeCmd.Flags().StringP("bind", "b", transport.DefaultBindEndpoint, "Endpoint to bind")
	consumeCmd.Flags().Bool("decode", false, "Also print the decoded pose fields")
}
