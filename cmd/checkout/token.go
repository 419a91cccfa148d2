package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/subfusion/checkout/internal/checkout/infra/adapters/token"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect order tokens",
	}
	cmd.AddCommand(tokenDecodeCmd())
	return cmd
}

func tokenDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [token|-]",
		Short: "Decode an order token (value_a) and print the order as JSON",
		Long: `Decode an order token taken from a gateway callback or the journal.

With ORDER_TOKEN_SECRET set (or --secret) the signature is verified first.
Pass "-" to read the token from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if !cmd.Flags().Changed("secret") {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				secret = cfg.OrderTokenSecret
			}

			raw := args[0]
			if raw == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read token: %w", err)
				}
				raw = string(b)
			}

			order, err := token.New(secret).Decode(strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(order)
		},
	}
	cmd.Flags().String("secret", "", "signing secret (overrides ORDER_TOKEN_SECRET)")
	return cmd
}
