package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/justmike1/sprintbot/config"
)

var errBurndownUnsupported = errors.New("burndown charts are not implemented")

func reportCmd() *cobra.Command {
	var (
		sprintID string
		rapidID  string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a sprint report to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				log.SetOutput(io.Discard)
				defer log.SetOutput(os.Stderr)
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if err := cfg.ValidateJira(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			p, err := loadPipeline(cmd, cfg)
			if err != nil {
				return err
			}

			log.Printf("requesting %s", p.client.SprintReportURL(rapidID, sprintID))
			raw, err := p.client.SprintReport(runContext(cmd), rapidID, sprintID)
			if err != nil {
				return err
			}
			text, err := p.builder.Build(raw, time.Now())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().StringVarP(&sprintID, "sprint_id", "s", "", "Jira sprint ID")
	cmd.Flags().StringVarP(&rapidID, "rapid_id", "r", "", "Jira board (rapid view) ID")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log requests and progress to stderr")
	_ = cmd.MarkFlagRequired("sprint_id")
	_ = cmd.MarkFlagRequired("rapid_id")

	return cmd
}

func burndownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "burndown",
		Short: "Render a sprint burndown chart (not implemented)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return errBurndownUnsupported
		},
	}
}
