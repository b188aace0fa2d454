package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/justmike1/sprintbot/commands"
	"github.com/justmike1/sprintbot/config"
	"github.com/justmike1/sprintbot/jira"
	"github.com/justmike1/sprintbot/report"
	"github.com/justmike1/sprintbot/roster"
	botslack "github.com/justmike1/sprintbot/slack"
)

var version = "dev"

var (
	cfgPath   string
	usersPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sprintbot",
		Short:         "Slack bot that posts Jira sprint reports",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBot,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "cfg", "c", config.DefaultPath, "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&usersPath, "users", "u", config.DefaultUsersPath, "Path to users (roster) file")

	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(burndownCmd())

	return rootCmd
}

// pipeline is the fetch-and-render half shared by the bot and the CLI.
type pipeline struct {
	client  *jira.Client
	builder *report.Builder
}

func loadPipeline(cmd *cobra.Command, cfg *config.Config) (*pipeline, error) {
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}
	ref, err := report.ParseReference(cfg.TimeRemainingFrom)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	path := usersPath
	if !cmd.Flags().Changed("users") && cfg.UsersFile != "" {
		path = cfg.UsersFile
	}
	users, err := roster.Load(path)
	if err != nil {
		return nil, err
	}

	client := jira.NewClient(cfg.JiraBase, creds,
		jira.WithTimeout(cfg.JiraTimeout),
		jira.WithRetry(uint64(cfg.JiraMaxRetries), 0),
	)
	log.Printf("[jira] %s auth=%s timeout=%s retries=%d roster=%d users reference=%s tz=%s",
		client.SiteURL(), client.AuthMode(), cfg.JiraTimeout, cfg.JiraMaxRetries, users.Len(), ref, loc)

	builder := report.NewBuilder(users, report.Options{
		BrowseURL: client.BrowseURL,
		Reference: ref,
		Location:  loc,
	})
	return &pipeline{client: client, builder: builder}, nil
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	p, err := loadPipeline(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slackClient := botslack.NewClient(cfg.SlackToken)
	router := commands.NewRouter(slackClient, p.client, p.builder)
	dispatcher := commands.NewDispatcher(cfg.Workers)
	session := botslack.NewSession(cfg.SlackAppToken, cfg.SlackToken, router.Handle, dispatcher)

	if cfg.HealthAddr != "" {
		go func() {
			access := newAccessPolicy(cfg.HealthAllowedCIDRs, cfg.HealthTrustedProxies)
			h := newHealthRouter(session, dispatcher, access)
			if err := serveHealth(ctx, cfg.HealthAddr, h); err != nil {
				log.Printf("[health] server failed: %v", err)
			}
		}()
	}

	log.Printf("sprintbot %s starting (workers=%d)", version, dispatcher.Workers())
	runErr := session.Run(ctx)

	stopped := make(chan struct{})
	go func() {
		dispatcher.Close()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(30 * time.Second):
		log.Printf("gave up waiting for %d pending commands", dispatcher.Pending())
	}

	if runErr != nil {
		return runErr
	}
	handled, failed := dispatcher.Stats()
	log.Printf("sprintbot stopped (commands handled=%d failed=%d)", handled, failed)
	return nil
}

// runContext returns the command's context, or Background for direct calls.
func runContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
