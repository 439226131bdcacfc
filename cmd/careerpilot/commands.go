package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/config"
	"github.com/yangwenmai/careerpilot/internal/engine"
	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/store"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <kind>",
		Short: "Generate one artifact and print it as JSON",
		Long: `Generate one artifact and print it as JSON.

Kinds: resume, cover_letter, skills_optimization, company_research,
salary_research, prediction.

Examples:
  careerpilot generate resume --user u1 --job 7
  careerpilot generate company_research --user u1 --company "Acme Corp"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := model.ParseKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q", args[0])
			}
			flags := cmd.Flags()
			user, _ := flags.GetString("user")
			job, _ := flags.GetInt64("job")
			company, _ := flags.GetString("company")
			instructions, _ := flags.GetString("instructions")
			tone, _ := flags.GetString("tone")
			length, _ := flags.GetString("length")
			modelName, _ := flags.GetString("model")

			req := model.GenerationRequest{
				Kind:         kind,
				UserID:       user,
				CompanyName:  company,
				Instructions: instructions,
				Options:      model.GenerationOptions{Tone: tone, Length: length, Model: modelName},
			}
			if job > 0 {
				req.JobID = &job
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			artifact, err := a.orch.Generate(cmd.Context(), req)
			if err != nil {
				printJSON(cmd.ErrOrStderr(), engine.Info(err, time.Now()))
				return err
			}
			return printJSON(cmd.OutOrStdout(), artifact)
		},
	}
	f := cmd.Flags()
	f.String("user", "", "owner of the profile and job records")
	f.Int64("job", 0, "target job id")
	f.String("company", "", "company name for research without a job")
	f.String("instructions", "", "extra free-text instructions")
	f.String("tone", "", "writing tone hint")
	f.String("length", "", "length hint")
	f.String("model", "", "requested model")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Fetch a page or PDF and print its readable text as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetString("wait-selector")

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.extractor.Extract(cmd.Context(), args[0], acquire.Options{WaitSelector: wait})
			if err != nil {
				var ae *acquire.Error
				if errors.As(err, &ae) {
					printJSON(cmd.ErrOrStderr(), map[string]any{"url": ae.URL, "attempts": ae.Attempts, "status": ae.Status, "error": err.Error()})
				}
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().String("wait-selector", "", "CSS selector the browser strategy waits for")
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Import profiles, jobs and career records from a YAML fixture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			fixtures, err := store.LoadFixtures(f)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			for _, u := range fixtures.Users {
				if err := a.store.ImportUser(cmd.Context(), u); err != nil {
					return fmt.Errorf("import %s: %w", u.Profile.UserID, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d users\n", len(fixtures.Users))
			return nil
		},
	}
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel)
	return newApp(cfg)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
