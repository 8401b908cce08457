package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sivacor/sivacor-cli/pkg/config"
)

func initCmd(c *cli) *cobra.Command {
	var (
		apiKey   string
		timezone string
		noPrompt bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize CLI config",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path()
			f, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			active := config.ResolveProfileName(c.profileName, f)
			prof := f.Profiles[active]

			apiURL := prof.APIURL
			if cmd.Flags().Changed("api-url") {
				apiURL = c.apiURL
			}
			if apiURL == "" {
				apiURL = c.cfg.APIURL
			}
			if apiKey == "" {
				apiKey = prof.APIKey
			}
			if timezone == "" {
				timezone = prof.Timezone
			}

			if !noPrompt {
				reader := bufio.NewReader(c.stdin)
				apiURL = prompt(c, reader, "Girder API URL", apiURL)
				if apiKey == "" {
					apiKey, err = promptSecret(c, reader, "Girder API key")
					if err != nil {
						return err
					}
				}
				timezone = prompt(c, reader, "Timezone (empty for local)", timezone)
			}
			if strings.TrimSpace(apiKey) == "" {
				return errors.New("an API key is required (pass --api-key or answer the prompt)")
			}

			prof.APIURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
			prof.APIKey = strings.TrimSpace(apiKey)
			prof.Timezone = strings.TrimSpace(timezone)
			check := config.Config{APIURL: prof.APIURL, APIKey: prof.APIKey, Timezone: prof.Timezone, LogLevel: "warn", LogFormat: "text"}
			if err := check.Validate(); err != nil {
				return err
			}

			f.Profiles[active] = prof
			if f.CurrentProfile == "" || c.profileName != "" {
				f.CurrentProfile = active
			}
			if err := config.SaveFile(f, path); err != nil {
				return err
			}
			c.okf("Initialized profile '%s' at %s", active, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Girder API key")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for displayed timestamps")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Disable interactive prompts")
	return cmd
}

func configCmd(c *cli) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect CLI config",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			tz := cfg.Timezone
			if tz == "" {
				tz = "local (" + cfg.Location().String() + ")"
			}
			tracing := "off"
			if cfg.TracingEnabled {
				tracing = "on (" + cfg.OTLPEndpoint + ")"
			}
			w := c.stdout
			fmt.Fprintln(w, c.ui.title("Profile:"), cfg.Profile)
			fmt.Fprintln(w, c.ui.dim("  config:  "), config.Path())
			fmt.Fprintln(w, c.ui.dim("  api url: "), cfg.APIURL)
			fmt.Fprintln(w, c.ui.dim("  api key: "), config.MaskToken(cfg.APIKey))
			fmt.Fprintln(w, c.ui.dim("  timezone:"), tz)
			fmt.Fprintln(w, c.ui.dim("  logging: "), cfg.LogLevel+"/"+cfg.LogFormat)
			fmt.Fprintln(w, c.ui.dim("  tracing: "), tracing)
			return nil
		},
	}
	cfgCmd.AddCommand(show)
	return cfgCmd
}
