package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pkt.systems/gitguide/internal/appconfig"
	"pkt.systems/pslog"
)

func newConfigCmd() *cobra.Command {
	var cfgPath string
	var writeDefault bool
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print effective config or write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			if writeDefault {
				path, err := appconfig.WriteDefault(cfgPath, overwrite)
				if err != nil {
					return err
				}
				logger.Info("config written", "path", path)
				return nil
			}
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if cfg.Workspace.Token != "" {
				cfg.Workspace.Token = "REDACTED"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&writeDefault, "write-default", false, "write the default config file")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing config file")
	return cmd
}
