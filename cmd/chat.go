package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/aichat/internal"
	"github.com/spf13/cobra"
)

var (
	chatModel            string
	chatSystem           string
	chatCharacter        string
	chatCharacterCommand string
	chatTemperature      float64
	chatRecentMessages   int
	chatTitle            string
	chatLoadPath         string
	chatOutputPath       string
	chatArchive          bool
)

var (
	// Styles for the interactive prompt
	userPromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantNameStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("135"))

	chatMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation that keeps history across turns.

Responses stream token by token. Inside the conversation:
  /reset    clear the conversation history
  /tokens   show token usage for this session
  /quit     leave (Ctrl-D also works)

Use --load to resume a session from a .json or .csv file, --output to
write it back on exit, and --save to archive it locally.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ai, err := internal.New(internal.Config{
			Character:        chatCharacter,
			CharacterCommand: chatCharacterCommand,
			System:           chatSystem,
			NoDefaultSession: chatLoadPath != "",
			Session: internal.SessionConfig{
				APIKey:         apiKey,
				Model:          chatModel,
				Params:         map[string]any{"temperature": chatTemperature},
				RecentMessages: chatRecentMessages,
				Title:          chatTitle,
			},
		})
		if err != nil {
			return err
		}

		sessionID := ""
		if chatLoadPath != "" {
			sess, err := ai.LoadSession(chatLoadPath, "", internal.SessionConfig{
				APIKey: apiKey,
				Model:  chatModel,
			})
			if err != nil {
				return err
			}
			sessionID = sess.ID
			internal.PrintInfo(fmt.Sprintf("Resumed session %s (%d message(s))", sess.ID, len(sess.Messages)))
		}

		sess, err := ai.GetSession(sessionID)
		if err != nil {
			return err
		}

		name := sess.Title
		if name == "" {
			name = "assistant"
		}
		fmt.Println(chatMetaStyle.Render(fmt.Sprintf("Chatting with %s (%s). /quit to leave.", name, sess.Model)))

		ctx := cmd.Context()
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print(userPromptStyle.Render("you> "))
			if !scanner.Scan() {
				fmt.Println()
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, "/") {
				if quit := runChatCommand(ai, sessionID, line); quit {
					break
				}
				continue
			}

			events, err := ai.Stream(ctx, line, internal.CallOptions{SessionID: sessionID})
			if err != nil {
				internal.PrintError(err.Error())
				continue
			}

			fmt.Print(assistantNameStyle.Render(name + "> "))
			streamErr := false
			for ev := range events {
				if ev.Err != nil {
					internal.PrintError(ev.Err.Error())
					streamErr = true
					break
				}
				fmt.Print(ev.Delta)
			}
			if !streamErr {
				fmt.Println()
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		return finishChat(ai, sessionID)
	},
}

// runChatCommand handles slash commands, returning true when the
// conversation should end.
func runChatCommand(ai *internal.AIChat, sessionID, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true
	case "/reset":
		if err := ai.ResetSession(sessionID); err != nil {
			internal.PrintError(err.Error())
		} else {
			internal.PrintInfo("History cleared")
		}
	case "/tokens":
		total, err := ai.TotalTokens(sessionID)
		if err != nil {
			internal.PrintError(err.Error())
			return false
		}
		prompt, _ := ai.TotalPromptLength(sessionID)
		completion, _ := ai.TotalCompletionLength(sessionID)
		internal.PrintInfo(fmt.Sprintf("%d tokens used (%d prompt, %d completion)", total, prompt, completion))
	default:
		internal.PrintWarning(fmt.Sprintf("Unknown command: %s", line))
	}
	return false
}

// finishChat writes the session wherever the flags asked for.
func finishChat(ai *internal.AIChat, sessionID string) error {
	sess, err := ai.GetSession(sessionID)
	if err != nil {
		return err
	}
	if len(sess.Messages) == 0 {
		return nil
	}

	if chatOutputPath != "" {
		format := strings.TrimPrefix(strings.ToLower(filepath.Ext(chatOutputPath)), ".")
		if format == "" {
			format = "json"
		}
		if err := ai.SaveSession(chatOutputPath, sessionID, format, false); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Session written to %s", chatOutputPath))
	}

	if chatArchive {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		dump := sess.Dump()
		if err := store.Save(&dump); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Session %s archived", sess.ID))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "Model to use (default gpt-3.5-turbo)")
	chatCmd.Flags().StringVarP(&chatSystem, "system", "s", "", "System prompt")
	chatCmd.Flags().StringVar(&chatCharacter, "character", "", "Public figure to impersonate")
	chatCmd.Flags().StringVar(&chatCharacterCommand, "character-command", "", "Task the character should perform")
	chatCmd.Flags().Float64VarP(&chatTemperature, "temperature", "t", 0.7, "Sampling temperature")
	chatCmd.Flags().IntVar(&chatRecentMessages, "recent", 0, "Limit history sent per request (0 = unlimited)")
	chatCmd.Flags().StringVar(&chatTitle, "title", "", "Session title")
	chatCmd.Flags().StringVar(&chatLoadPath, "load", "", "Resume a session from a .json or .csv file")
	chatCmd.Flags().StringVarP(&chatOutputPath, "output", "o", "", "Write the session to this file on exit")
	chatCmd.Flags().BoolVar(&chatArchive, "save", false, "Archive the session locally on exit")
}
