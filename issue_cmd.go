package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rpupo63/round/client"
	"github.com/rpupo63/round/config"
	"github.com/rpupo63/round/models"
	"github.com/rpupo63/round/picker"
	"github.com/spf13/cobra"
)

var (
	idStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	groupStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Read and edit issues on a Round server",
}

func init() {
	issueCmd.PersistentFlags().String("server", "", "Server URL (default $ROUND_SERVER_URL or http://localhost:8080)")
	issueCmd.PersistentFlags().String("token", "", "Session token (default $ROUND_TOKEN)")

	issueCmd.AddCommand(
		&cobra.Command{
			Use:   "show <issue-id>",
			Short: "Show one issue",
			Args:  issueArgs(cobra.ExactArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				issue, err := newClient(cmd).GetIssue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				renderIssue(cmd.OutOrStdout(), issue)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list <project-id>",
			Short: "Show a project's board",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				groups, err := newClient(cmd).ListIssues(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, g := range groups {
					if len(g.Issues) == 0 {
						continue
					}
					fmt.Fprintf(out, "%s (%d)\n", groupStyle.Render(string(g.Status)), len(g.Issues))
					for _, issue := range g.Issues {
						fmt.Fprintf(out, "  %s %s %s\n", idStyle.Render(issue.ID), issue.Title, dimStyle.Render(string(issue.Priority)))
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "status <issue-id> <status>",
			Short: "Change an issue's status",
			Args:  issueArgs(cobra.ExactArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				status := models.IssueStatus(args[1])
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", args[1])
				}
				c := newClient(cmd)
				issue, err := c.GetIssue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return runPicker(cmd, c, issue.ID, "status", issue.Status, status, func(ctx context.Context, v models.IssueStatus) error {
					return c.UpdateStatus(ctx, issue.ID, v)
				})
			},
		},
		&cobra.Command{
			Use:   "priority <issue-id> <priority>",
			Short: "Change an issue's priority",
			Args:  issueArgs(cobra.ExactArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				priority := models.IssuePriority(args[1])
				if !priority.Valid() {
					return fmt.Errorf("unknown priority %q", args[1])
				}
				c := newClient(cmd)
				issue, err := c.GetIssue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return runPicker(cmd, c, issue.ID, "priority", issue.Priority, priority, func(ctx context.Context, v models.IssuePriority) error {
					return c.UpdatePriority(ctx, issue.ID, v)
				})
			},
		},
		&cobra.Command{
			Use:   "assign <issue-id> <user-id|none>",
			Short: "Assign an issue to a project member",
			Args:  issueArgs(cobra.ExactArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				var assignee *string
				if args[1] != "none" {
					assignee = &args[1]
				}
				c := newClient(cmd)
				issue, err := c.GetIssue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return runPicker(cmd, c, issue.ID, "assignedUserId", issue.AssignedUserID, assignee, func(ctx context.Context, v *string) error {
					return c.UpdateAssignee(ctx, issue.ID, v)
				})
			},
		},
		&cobra.Command{
			Use:   "target-date <issue-id> <YYYY-MM-DD|none>",
			Short: "Set or clear an issue's target date",
			Args:  issueArgs(cobra.ExactArgs(2)),
			RunE: func(cmd *cobra.Command, args []string) error {
				var date *time.Time
				if args[1] != "none" {
					t, err := time.Parse(time.DateOnly, args[1])
					if err != nil {
						return fmt.Errorf("invalid date %q, want YYYY-MM-DD", args[1])
					}
					date = &t
				}
				c := newClient(cmd)
				issue, err := c.GetIssue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return runPicker(cmd, c, issue.ID, "targetDate", issue.TargetDate, date, func(ctx context.Context, v *time.Time) error {
					return c.UpdateTargetDate(ctx, issue.ID, v)
				})
			},
		},
		&cobra.Command{
			Use:   "labels <issue-id> [label...]",
			Short: "Replace an issue's labels; no labels clears them",
			Args:  issueArgs(cobra.MinimumNArgs(1)),
			RunE: func(cmd *cobra.Command, args []string) error {
				labels, err := models.NormalizeLabels(args[1:])
				if err != nil {
					return err
				}
				c := newClient(cmd)
				issue, err := c.GetIssue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return runPicker(cmd, c, issue.ID, "labels", []string(issue.Labels), labels, func(ctx context.Context, v []string) error {
					return c.UpdateLabels(ctx, issue.ID, v)
				})
			},
		},
	)
}

// issueArgs runs check and then requires the first argument to be an issue ID.
func issueArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return err
		}
		_, _, err := models.ParseIssueID(args[0])
		return err
	}
}

func newClient(cmd *cobra.Command) *client.Client {
	cfg := getCfg(cmd)
	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = config.GetString(cfg, "ROUND_SERVER_URL", "http://localhost:8080")
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = config.GetString(cfg, "ROUND_TOKEN", "")
	}
	return client.New(server, token)
}

// runPicker drives one optimistic edit: it selects next, waits for the write
// and reloads the issue when it succeeds.
func runPicker[T any](cmd *cobra.Command, c *client.Client, issueID, field string, current, next T, mutate picker.Mutation[T]) error {
	out := cmd.OutOrStdout()
	ctrl := picker.New(field, current, mutate,
		picker.WithNotifier[T](picker.WriterNotifier{Out: out}),
		picker.WithRefresh[T](func(ctx context.Context) error {
			issue, err := c.GetIssue(ctx, issueID)
			if err != nil {
				return err
			}
			renderIssue(out, issue)
			return nil
		}),
	)
	if err := ctrl.Open(); err != nil {
		return err
	}
	done, err := ctrl.Select(cmd.Context(), next)
	if err != nil {
		return err
	}
	res := <-done
	if res.Err != nil {
		return res.Err
	}
	return res.RefreshErr
}

func renderIssue(w io.Writer, issue *models.Issue) {
	fmt.Fprintf(w, "%s %s\n", idStyle.Render(issue.ID), issue.Title)
	fmt.Fprintf(w, "  status:   %s\n", issue.Status)
	fmt.Fprintf(w, "  priority: %s\n", issue.Priority)

	assignee := "unassigned"
	switch {
	case issue.AssignedUser != nil:
		assignee = issue.AssignedUser.Name
	case issue.AssignedUserID != nil:
		assignee = *issue.AssignedUserID
	}
	fmt.Fprintf(w, "  assignee: %s\n", assignee)

	if issue.TargetDate != nil {
		fmt.Fprintf(w, "  target:   %s\n", issue.TargetDate.Format(time.DateOnly))
	}
	if len(issue.Labels) > 0 {
		fmt.Fprintf(w, "  labels:   %s\n", labelStyle.Render(strings.Join([]string(issue.Labels), ", ")))
	}
	if !issue.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  %s\n", dimStyle.Render("updated "+humanize.Time(issue.UpdatedAt)))
	}
}
