package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/flemzord/sigma/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// initAnswers holds the choices made in the setup wizard. Secrets are
// referenced by environment variable name and never written to disk.
type initAnswers struct {
	GeminiKeyEnv   string
	Model          string
	TelegramKeyEnv string
	Mode           string // polling or webhook
	WebhookURL     string
	AllowUsers     string // comma separated user IDs
	EnableGateway  bool
	GatewayBind    string
	DatabasePath   string
	Greeting       string
}

func defaultAnswers() initAnswers {
	return initAnswers{
		GeminiKeyEnv:   "GEMINI_API_KEY",
		Model:          "gemini-1.5-flash",
		TelegramKeyEnv: "TELEGRAM_BOT_API",
		Mode:           "polling",
		GatewayBind:    "127.0.0.1:8080",
		DatabasePath:   "memory.db",
	}
}

func initCmd() *cobra.Command {
	var (
		output   string
		force    bool
		defaults bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a sigma.yaml configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", output)
				}
			}

			answers := defaultAnswers()
			if !defaults {
				if err := runWizard(&answers); err != nil {
					if errors.Is(err, huh.ErrUserAborted) {
						return errors.New("init aborted")
					}
					return err
				}
			}

			raw, err := renderConfig(answers)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0o700); err != nil {
					return err
				}
			}
			if err := os.WriteFile(output, raw, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Export %s and %s, then run: sigma start -c %s\n",
				output, answers.GeminiKeyEnv, answers.TelegramKeyEnv, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.FileName, "Where to write the configuration")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Skip the wizard and write the defaults")
	return cmd
}

func runWizard(a *initAnswers) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Environment variable holding the Gemini API key").
				Value(&a.GeminiKeyEnv).
				Validate(validateEnvName),
			huh.NewInput().
				Title("Gemini model").
				Value(&a.Model),
			huh.NewInput().
				Title("Environment variable holding the Telegram bot token").
				Value(&a.TelegramKeyEnv).
				Validate(validateEnvName),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should sigma receive Telegram updates?").
				Options(
					huh.NewOption("Long polling", "polling"),
					huh.NewOption("Webhook (needs the HTTP gateway)", "webhook"),
				).
				Value(&a.Mode),
			huh.NewInput().
				Title("Public webhook base URL (webhook mode only)").
				Placeholder("https://bot.example.com").
				Value(&a.WebhookURL),
			huh.NewInput().
				Title("Allowed Telegram user IDs, comma separated (empty allows everyone)").
				Value(&a.AllowUsers),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable the HTTP gateway (/health, /metrics)?").
				Value(&a.EnableGateway),
			huh.NewInput().
				Title("Gateway listen address").
				Value(&a.GatewayBind),
			huh.NewInput().
				Title("Session database file").
				Value(&a.DatabasePath),
			huh.NewInput().
				Title("Greeting for /start (empty keeps the default)").
				Value(&a.Greeting),
		),
	)
	return form.Run()
}

func validateEnvName(s string) error {
	if !envNamePattern.MatchString(s) {
		return errors.New("must be a valid environment variable name")
	}
	return nil
}

// renderConfig turns wizard answers into a sigma.yaml document.
func renderConfig(a initAnswers) ([]byte, error) {
	if err := validateEnvName(a.GeminiKeyEnv); err != nil {
		return nil, fmt.Errorf("gemini key variable: %w", err)
	}
	if err := validateEnvName(a.TelegramKeyEnv); err != nil {
		return nil, fmt.Errorf("telegram token variable: %w", err)
	}
	if a.Mode == "webhook" && a.WebhookURL == "" {
		return nil, errors.New("webhook mode requires a webhook URL")
	}

	telegram := map[string]any{
		"token": "${" + a.TelegramKeyEnv + "}",
		"mode":  a.Mode,
	}
	if a.Mode == "webhook" {
		telegram["webhook_url"] = strings.TrimRight(a.WebhookURL, "/") + "/webhooks/telegram"
	}
	if users := splitList(a.AllowUsers); len(users) > 0 {
		telegram["allow_users"] = users
	}

	gemini := map[string]any{"api_key": "${" + a.GeminiKeyEnv + "}"}
	if a.Model != "" {
		gemini["model"] = a.Model
	}

	modules := map[string]any{
		"provider.gemini":  gemini,
		"channel.telegram": telegram,
		"memory.sqlite":    map[string]any{"path": a.DatabasePath},
	}
	if a.EnableGateway || a.Mode == "webhook" {
		modules["gateway.http"] = map[string]any{"bind": a.GatewayBind}
	}

	doc := map[string]any{
		"version": "1",
		"log":     map[string]any{"level": "info", "format": "text"},
		"modules": modules,
	}
	if a.Greeting != "" {
		doc["bot"] = map[string]any{"greeting": a.Greeting}
	}
	return yaml.Marshal(doc)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
