package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/aichat/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived sessions",
	Long:  `List all sessions in the local archive.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		infos, err := store.List()
		if err != nil {
			return err
		}
		displaySessions(infos)
		return nil
	},
}

// sessionsDeleteCmd represents the sessions delete command
var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete an archived session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openArchive()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		if err := store.Delete(args[0]); err != nil {
			return err
		}
		internal.PrintSuccess(fmt.Sprintf("Session %s deleted", args[0]))
		return nil
	},
}

func displaySessions(infos []internal.SessionInfo) {
	if len(infos) == 0 {
		fmt.Println(headerStyle.Render("No archived sessions"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("Found %d session(s)", len(infos)))
	fmt.Println(header)
	fmt.Println()

	// Use tabwriter for aligned columns
	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Model")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Created")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, info := range infos {
		title := info.Title
		if title == "" {
			title = "Untitled"
		}
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
		title = nameStyle.Render(title)

		msgCount := countStyle.Render(strconv.Itoa(info.MessageCount))

		created := dateStyle.Render("—")
		if !info.CreatedAt.IsZero() {
			t := info.CreatedAt.Local()
			diff := time.Since(t)
			switch {
			case diff < 24*time.Hour:
				created = dateStyle.Render(t.Format("Today 15:04"))
			case diff < 7*24*time.Hour:
				created = dateStyle.Render(t.Format("Mon 15:04"))
			case diff < 365*24*time.Hour:
				created = dateStyle.Render(t.Format("Jan 02 15:04"))
			default:
				created = dateStyle.Render(t.Format("2006-01-02"))
			}
		}

		// Show short ID (first 8 chars) for readability
		shortID := info.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		id := idStyle.Render(shortID)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n", id, title, info.Model, msgCount, created)
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("Tip: Use the full ID (e.g., ") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(infos[0].ID) +
		idStyle.Render(") with `aichat export <id>`"))
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
