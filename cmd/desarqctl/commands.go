package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"desarquivamento/internal/desarquivamento/importer"
	"desarquivamento/internal/desarquivamento/models"
	jwttoken "desarquivamento/internal/jwt_token"
	id "desarquivamento/pkg/domain"
	"desarquivamento/pkg/requestcontext"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		userID int64
		roles  []string
	)
	cmd := &cobra.Command{
		Use:   "import FILE.xlsx",
		Short: "Create requests from a spreadsheet on behalf of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := id.NewUserID(userID)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			parsed, err := importer.Parse(f)
			if err != nil {
				return err
			}
			a, _, err := opts.application(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res := &models.ImportResponse{Created: []*models.RequestResponse{}, Failed: []models.ImportRowError{}}
			if len(parsed.Rows) > 0 {
				ctx := requestcontext.WithTime(cmd.Context(), time.Now())
				res, err = a.Requests.Import(ctx, &models.ImportCommand{
					Actor: models.Actor{UserID: actor, UserRoles: roles},
					Rows:  parsed.Rows,
				})
				if err != nil {
					return err
				}
			}
			res.Failed = append(parsed.Errors, res.Failed...)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "id of the user the requests are created for")
	cmd.Flags().StringSliceVar(&roles, "roles", []string{"operator"}, "roles of that user")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newScanCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run the pending-request scan once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.application(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			result, err := a.Scanner.Scan(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newCleanupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete read notifications past the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := opts.application(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			removed, err := a.Scanner.Cleanup(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int64{"removed": removed})
		},
	}
}

func newTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template FILE.xlsx",
		Short: "Write an empty import spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.Template()
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if err := f.SaveAs(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		userID int64
		roles  []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token signed with the configured key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			user, err := id.NewUserID(userID)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
			token, err := svc.GenerateAccessToken(user, roles, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(token))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id claim")
	cmd.Flags().StringSliceVar(&roles, "roles", []string{"user"}, "roles claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
