package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"redreel/internal/notifications"
	"redreel/internal/redditauth"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Credential lifecycle",
	}

	authCmd.AddCommand(newAuthStatusCommand(ctx))
	authCmd.AddCommand(newAuthConnectCommand(ctx))
	authCmd.AddCommand(newAuthDisconnectCommand(ctx))

	return authCmd
}

func newAuthStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored credential state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, closeStore, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			manager, err := ctx.buildManager(cfg, store, nil, logger)
			if err != nil {
				return err
			}
			manager.Initialize(cmd.Context())

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			cred := manager.Credential()

			phase := manager.Phase()
			fmt.Fprintln(out, renderStatusLine("Phase", phaseStatusKind(phase), phase.String(), colorize))
			if cred.Authenticated {
				fmt.Fprintln(out, renderStatusLine("Credential", statusOK, "authenticated", colorize))
				fmt.Fprintln(out, renderStatusLine("Expires", statusInfo, cred.ExpiresAt.Format(time.RFC3339), colorize))
				if cred.Scope != "" {
					fmt.Fprintln(out, renderStatusLine("Scope", statusInfo, cred.Scope, colorize))
				}
			} else {
				fmt.Fprintln(out, renderStatusLine("Credential", statusWarn, "not authenticated; run 'redreel auth connect'", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Store", statusInfo, cfg.StorePath(), colorize))
			return nil
		},
	}
}

func newAuthConnectCommand(ctx *commandContext) *cobra.Command {
	var codeFlag string

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Exchange an authorization code for a credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, closeStore, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			notifier := notifications.NewService(cfg)
			manager, err := ctx.buildManager(cfg, store, notifier, logger)
			if err != nil {
				return err
			}

			if err := manager.Connect(cmd.Context(), codeFlag); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account connected")
			return nil
		},
	}

	cmd.Flags().StringVar(&codeFlag, "code", "", "Authorization code from the OAuth redirect")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newAuthDisconnectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Clear the stored credential and revoke it upstream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			store, closeStore, err := ctx.openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			manager, err := ctx.buildManager(cfg, store, nil, logger)
			if err != nil {
				return err
			}
			manager.Initialize(cmd.Context())

			if err := manager.Disconnect(cmd.Context()); err != nil {
				return fmt.Errorf("disconnect: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account disconnected")
			return nil
		},
	}
}

func phaseStatusKind(phase redditauth.Phase) statusKind {
	switch phase {
	case redditauth.PhaseReady:
		return statusOK
	case redditauth.PhaseFailed:
		return statusWarn
	default:
		return statusInfo
	}
}
