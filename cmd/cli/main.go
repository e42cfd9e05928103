// Command tk is a command-line client for the taskkeeper HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/and161185/taskkeeper/internal/convert"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// app holds the state shared by every subcommand.
type app struct {
	addr    string
	timeout time.Duration
	hc      *http.Client
}

// client builds an API client; authed commands attach the saved token.
func (a *app) client(authed bool) (*client, error) {
	tok := ""
	if authed {
		var err error
		if tok, err = loadToken(); err != nil {
			return nil, err
		}
	}
	return newClient(a.addr, tok, a.hc), nil
}

func (a *app) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func newRootCmd(hc *http.Client) *cobra.Command {
	a := &app{hc: hc}
	defAddr := os.Getenv("TK_ADDR")
	if defAddr == "" {
		defAddr = "http://localhost:8080"
	}

	root := &cobra.Command{
		Use:   "tk",
		Short: "taskkeeper command-line client",
		Long: `tk talks to a taskkeeper server over its JSON API.

Example usage:
  tk register --name Ann --email ann@example.com --password secret1
  tk login --email ann@example.com --password secret1
  tk add --title "Write report" --priority high --due 2026-11-01
  tk list --status todo --sort -dueDate
  tk stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.addr, "addr", defAddr, "server base URL (env TK_ADDR)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		newVersionCmd(),
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(),
		newMeCmd(a),
		newProfileCmd(a),
		newPasswdCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newUpdateCmd(a),
		newRmCmd(a),
		newStatsCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tk %s (%s)\n", version, buildDate)
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var req convert.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and save the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _ := a.client(false)
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.register(ctx, req)
			if err != nil {
				return err
			}
			if err := saveToken(resp.Token, tokenExpiry(resp.Token)); err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.User)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var req convert.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, _ := a.client(false)
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.login(ctx, req)
			if err != nil {
				return err
			}
			if err := saveToken(resp.Token, tokenExpiry(resp.Token)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", resp.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clearToken()
		},
	}
}

func newMeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.me(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.User)
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var req convert.ProfileRequest
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Replace name, bio and avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.updateProfile(ctx, req)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.User)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Bio, "bio", "", "short bio")
	cmd.Flags().StringVar(&req.Avatar, "avatar", "", "avatar URL")
	return cmd
}

func newPasswdCmd(a *app) *cobra.Command {
	var req convert.PasswordRequest
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password; the saved token stops working",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := c.changePassword(ctx, req); err != nil {
				return err
			}
			if err := clearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password changed, log in again")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.CurrentPassword, "current", "", "current password")
	cmd.Flags().StringVar(&req.NewPassword, "new", "", "new password")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var status, priority, search, sortBy string
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			q := url.Values{}
			for k, v := range map[string]string{"status": status, "priority": priority, "search": search, "sort": sortBy} {
				if v != "" {
					q.Set(k, v)
				}
			}
			if page > 0 {
				q.Set("page", strconv.Itoa(page))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.listTasks(ctx, q)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "todo | in-progress | done")
	cmd.Flags().StringVar(&priority, "priority", "", "low | medium | high")
	cmd.Flags().StringVar(&search, "search", "", "substring of title or description")
	cmd.Flags().StringVar(&sortBy, "sort", "", "sort field, '-' prefix for descending")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	return cmd
}

func taskFlags(cmd *cobra.Command, req *convert.TaskRequest, due *string) {
	cmd.Flags().StringVar(&req.Title, "title", "", "task title")
	cmd.Flags().StringVar(&req.Description, "desc", "", "task description")
	cmd.Flags().StringVar(&req.Status, "status", "", "todo | in-progress | done")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "low | medium | high")
	cmd.Flags().StringVar(due, "due", "", "due date (YYYY-MM-DD or RFC 3339)")
}

func newAddCmd(a *app) *cobra.Command {
	var req convert.TaskRequest
	var due string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			if due != "" {
				req.DueDate = &due
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.createTask(ctx, req)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.Task)
			return nil
		},
	}
	taskFlags(cmd, &req, &due)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var req convert.TaskRequest
	var due string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a task's fields; omitted fields reset to defaults",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			if due != "" {
				req.DueDate = &due
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.updateTask(ctx, args[0], req)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.Task)
			return nil
		},
	}
	taskFlags(cmd, &req, &due)
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := c.deleteTask(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(true)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			resp, err := c.stats(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), resp.Stats)
			return nil
		},
	}
}

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
