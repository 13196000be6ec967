package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
)

var (
	askSession      string
	askContract     string
	askContractFile string
	askForce        string
	askJSON         bool
)

// askCmd runs one request from the terminal
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		contract := askContract
		if askContractFile != "" {
			b, err := os.ReadFile(askContractFile)
			if err != nil {
				return fmt.Errorf("read contract file: %w", err)
			}
			contract = string(b)
		}

		store, closer, err := openRepository(ctx, cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		runner, err := buildRunner(ctx, cfg, store)
		if err != nil {
			return err
		}

		resp, err := runner.Invoke(ctx, model.Request{
			Question:     args[0],
			ContractText: contract,
			SessionKey:   askSession,
			ForceBranch:  askForce,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Fprintf(out, "[%s] %s\n", resp.Router, resp.Response)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Session key (default CONVERSATION_DEFAULT_SESSION)")
	askCmd.Flags().StringVar(&askContract, "contract", "", "Contract text or extra context")
	askCmd.Flags().StringVar(&askContractFile, "contract-file", "", "Read contract text from a file")
	askCmd.Flags().StringVar(&askForce, "force", "", "Force a branch: memory|draft|review|lookup|smalltalk")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full response as JSON")
	askCmd.MarkFlagsMutuallyExclusive("contract", "contract-file")
}
