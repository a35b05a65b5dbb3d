package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/andrepadez/ostt/internal/bootstrap"
	"github.com/andrepadez/ostt/internal/config"
	"github.com/andrepadez/ostt/internal/transcribe"
	"github.com/andrepadez/ostt/internal/tui"
)

var version = "0.1.0-dev"

const usage = `ostt - interactive speech-to-text

Usage:
  ostt [flags]             record and transcribe (default)
  ostt history             browse past transcriptions
  ostt keywords            manage transcription bias keywords
  ostt auth                list authorized providers
  ostt auth <provider> <key>    save an API key
  ostt auth clear <provider>    remove an API key
  ostt models              list available models
  ostt models select <id>  select the active model

Flags:
  -config <path>  config file (default ~/.config/ostt/config.yaml)
  -version        print version and exit
`

func main() {
	var (
		configPath  string
		showVersion bool
	)

	defaultConfig, _ := config.DefaultPath()
	flag.StringVar(&configPath, "config", defaultConfig, "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	if err := run(configPath, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "ostt:", err)
		os.Exit(1)
	}
}

func run(configPath string, args []string) error {
	ctx := context.Background()

	services, err := bootstrap.Build(ctx, configPath)
	if err != nil {
		return err
	}
	defer services.Close()

	command := "record"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "record":
		return runRecord(services)
	case "history":
		return runHistory(ctx, services)
	case "keywords":
		return runKeywords(services)
	case "auth":
		return runAuth(services, args[1:])
	case "models":
		return runModels(services, args[1:])
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runRecord(services bootstrap.Services) error {
	if services.CaptureErr != nil {
		// Recording is the only command that needs the capture backend;
		// report the miss with remediation instead of crashing.
		return services.CaptureErr
	}

	model := tui.NewRecordModel(
		services.Recorder,
		services.Dispatcher,
		services.Secrets,
		services.Keywords,
		services.History,
		services.Clipboard,
		services.Notifier,
		services.Log,
		tui.RecordOptions{
			OutputDir:  services.Config.Recording.OutputDir,
			RenderTick: services.Config.Recording.RenderTick(),
		},
	)

	_, err := tea.NewProgram(model).Run()
	return err
}

func runHistory(ctx context.Context, services bootstrap.Services) error {
	records, err := services.History.List(ctx, 200)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(tui.NewHistoryModel(records, services.Clipboard)).Run()
	return err
}

func runKeywords(services bootstrap.Services) error {
	model, err := tui.NewKeywordsModel(services.Keywords)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(model).Run()
	return err
}

func runAuth(services bootstrap.Services, args []string) error {
	switch {
	case len(args) == 0:
		providers, err := services.Secrets.AuthorizedProviders()
		if err != nil {
			return err
		}
		if len(providers) == 0 {
			fmt.Println("no providers authorized; run: ostt auth <provider> <key>")
			return nil
		}
		for _, id := range providers {
			fmt.Println(id)
		}
		return nil

	case args[0] == "clear" && len(args) == 2:
		if err := services.Secrets.ClearAPIKey(args[1]); err != nil {
			return err
		}
		fmt.Printf("cleared API key for %s\n", args[1])
		return nil

	case len(args) == 2:
		providerID := strings.ToLower(args[0])
		if !validProvider(providerID) {
			return fmt.Errorf("unknown provider %q (supported: %s)", providerID, providerList())
		}
		if err := services.Secrets.SaveAPIKey(providerID, args[1]); err != nil {
			return err
		}
		fmt.Printf("API key saved for %s\n", providerID)
		return nil

	default:
		return errors.New("usage: ostt auth [<provider> <key> | clear <provider>]")
	}
}

func runModels(services bootstrap.Services, args []string) error {
	if len(args) == 2 && args[0] == "select" {
		if _, ok := transcribe.ModelFromID(args[1]); !ok {
			return fmt.Errorf("unknown model %q", args[1])
		}
		if err := services.Secrets.SaveSelectedModel(args[1]); err != nil {
			return err
		}
		fmt.Printf("selected model %s\n", args[1])
		return nil
	}
	if len(args) > 0 {
		return errors.New("usage: ostt models [select <id>]")
	}

	selected, ok, err := services.Secrets.SelectedModel()
	if err != nil {
		return err
	}
	if !ok {
		selected = transcribe.DefaultModel.ID()
	}
	authorized, err := services.Secrets.AuthorizedProviders()
	if err != nil {
		return err
	}
	authorizedSet := map[string]bool{}
	for _, id := range authorized {
		authorizedSet[id] = true
	}

	for _, m := range transcribe.AllModels() {
		marker := " "
		if m.ID() == selected {
			marker = "*"
		}
		auth := ""
		if !authorizedSet[string(m.Provider())] {
			auth = " (no API key)"
		}
		fmt.Printf("%s %-24s %-10s %s%s\n", marker, m.ID(), m.Provider(), m.Description(), auth)
	}
	return nil
}

func validProvider(id string) bool {
	for _, p := range transcribe.AllProviders() {
		if string(p) == id {
			return true
		}
	}
	return false
}

func providerList() string {
	var ids []string
	for _, p := range transcribe.AllProviders() {
		ids = append(ids, string(p))
	}
	return strings.Join(ids, ", ")
}
