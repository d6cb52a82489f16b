package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/aichat/internal"
	"github.com/spf13/cobra"
)

var (
	askModel       string
	askSystem      string
	askCharacter   string
	askTemperature float64
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask a one-shot question",
	Long: `Send a single prompt and print the response.

No session state is kept between invocations; use 'aichat chat' for an
ongoing conversation.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")

		ai, err := internal.New(internal.Config{
			Character: askCharacter,
			System:    askSystem,
			Session: internal.SessionConfig{
				APIKey: apiKey,
				Model:  askModel,
				Params: map[string]any{"temperature": askTemperature},
			},
		})
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		var response any
		err = internal.ShowProgress(ctx, "Waiting for response", func() error {
			var callErr error
			response, callErr = ai.Call(ctx, prompt, internal.CallOptions{})
			return callErr
		})
		if err != nil {
			return err
		}

		fmt.Println(response)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "Model to use (default gpt-3.5-turbo)")
	askCmd.Flags().StringVarP(&askSystem, "system", "s", "", "System prompt")
	askCmd.Flags().StringVar(&askCharacter, "character", "", "Public figure to impersonate")
	askCmd.Flags().Float64VarP(&askTemperature, "temperature", "t", 0.7, "Sampling temperature")
}
