package main

import (
	"fmt"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
)

func newVAPIDKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "generates a VAPID key pair for the push configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("failed to generate VAPID keys: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vapid_public_key: %q\n", publicKey)
			fmt.Fprintf(out, "vapid_private_key: %q\n", privateKey)
			return nil
		},
	}
}
