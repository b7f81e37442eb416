// Command keygen mints API credentials for the users list in the server
// config. The printed token goes to the user; the config carries only the
// argon2id hash.
package cmds

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	note      string
	tokenSize int
)

var rootCmd = &cobra.Command{
	Use:           "keygen",
	Short:         "Generate an API key entry for the server config",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		raw := make([]byte, tokenSize)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		token := base64.StdEncoding.EncodeToString(raw)

		hash, err := argon2id.CreateHash(token, argon2id.DefaultParams)
		if err != nil {
			return fmt.Errorf("failed to hash token: %w", err)
		}

		id := uuid.New()

		fmt.Printf("# basic auth credentials, hand these to the user\n")
		fmt.Printf("# id:    %s\n", id)
		fmt.Printf("# token: %s\n", token)
		fmt.Printf("- id: %s\n", id)
		fmt.Printf("  note: %q\n", note)
		fmt.Printf("  api_key:\n")
		fmt.Printf("    active: true\n")
		fmt.Printf("    token: %q\n", hash)

		return nil
	},
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.Flags().StringVar(&note, "note", "", "Human readable note stored with the key")
	rootCmd.Flags().IntVar(&tokenSize, "token-size", 48, "Random token size in bytes")

	if err := rootCmd.MarkFlagRequired("note"); err != nil {
		panic("Internal error contact a contributor [note-flag-required]")
	}
}
