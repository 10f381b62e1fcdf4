package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pkt.systems/gitguide/internal/appconfig"
	"pkt.systems/gitguide/schema"
	"pkt.systems/gitguide/workspace"
	"pkt.systems/pslog"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage workspace terminal sessions",
	}
	cmd.AddCommand(newSessionsListCmd())
	cmd.AddCommand(newSessionsCreateCmd())
	cmd.AddCommand(newSessionsDeleteCmd())
	return cmd
}

func sessionsClient(cfgPath string) (*workspace.Client, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	token, err := cfg.Workspace.ResolveToken()
	if err != nil {
		return nil, err
	}
	return workspace.NewClient(workspace.ClientConfig{
		BaseURL: cfg.Workspace.BaseURL,
		Token:   token,
	})
}

func newSessionsListCmd() *cobra.Command {
	var cfgPath string
	var workspaceID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a workspace's terminal sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionsClient(cfgPath)
			if err != nil {
				return err
			}
			sessions, err := client.ListSessions(cmd.Context(), schema.WorkspaceID(workspaceID))
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tNAME\tCREATED")
			for _, session := range sessions.Sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\n", session.SessionID, session.Name, session.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "workspace id")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newSessionsCreateCmd() *cobra.Command {
	var cfgPath string
	var workspaceID string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a named terminal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionsClient(cfgPath)
			if err != nil {
				return err
			}
			session, err := client.CreateSession(cmd.Context(), schema.WorkspaceID(workspaceID), schema.SessionName(args[0]))
			if err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("session created", "session", session.SessionID, "name", session.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "workspace id")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newSessionsDeleteCmd() *cobra.Command {
	var cfgPath string
	var workspaceID string
	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a terminal session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := sessionsClient(cfgPath)
			if err != nil {
				return err
			}
			if err := client.DeleteSession(cmd.Context(), schema.WorkspaceID(workspaceID), schema.SessionID(args[0])); err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("session deleted", "session", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "workspace id")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}
