package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/luispater/pagechain/internal/api"
	"github.com/luispater/pagechain/internal/browser/firefox"
	"github.com/luispater/pagechain/internal/browser/launch"
	"github.com/luispater/pagechain/internal/config"
	"github.com/luispater/pagechain/internal/fixture"
	"github.com/luispater/pagechain/internal/page"
	"github.com/luispater/pagechain/internal/pages"
	"github.com/luispater/pagechain/internal/runner"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	var newLog string
	if entry.Caller != nil {
		newLog = fmt.Sprintf("[%s] [%s] [%s:%d] %s\n", timestamp, entry.Level, path.Base(entry.Caller.File), entry.Caller.Line, entry.Message)
	} else {
		newLog = fmt.Sprintf("[%s] [%s] %s\n", timestamp, entry.Level, entry.Message)
	}

	b.WriteString(newLog)
	return b.Bytes(), nil
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
	log.SetReportCaller(true)
	log.SetFormatter(&LogFormatter{})
}

var (
	flagConfig  string
	flagDebug   bool
	flagFixture bool

	cfg *config.AppConfig
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pagechain",
		Short: "Run chains of page objects against a browser",
		Long: `pagechain drives a browser through chains of page objects. Every page
declares the single page its action leads to, so a chain either reaches
the page it promises or fails with the reason.

  pagechain pages             # list the registered pages
  pagechain serve             # serve the demo site
  pagechain run login-logout  # run a chain from the chain directory
  pagechain api               # run chains over HTTP`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = loadConfig(flagConfig, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if flagDebug {
				cfg.Debug = true
			}
			if !cfg.Debug {
				log.SetLevel(log.InfoLevel)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultConfigPath, "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Debug logging")

	runCmd := &cobra.Command{
		Use:   "run [chain...]",
		Short: "Run chains, all of them when none is named",
		RunE:  runChains,
	}
	runCmd.Flags().BoolVar(&flagFixture, "fixture", true, "Serve the demo site while running")

	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Start the HTTP API",
		RunE:  runAPI,
	}
	apiCmd.Flags().BoolVar(&flagFixture, "fixture", true, "Serve the demo site alongside the API")

	rootCmd.AddCommand(
		runCmd,
		apiCmd,
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the demo site until interrupted",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "pages",
			Short: "List the registered pages",
			RunE:  runPages,
		},
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

// loadConfig falls back to the defaults when the default file is absent.
func loadConfig(file string, explicit bool) (*config.AppConfig, error) {
	appConfig, err := config.LoadConfig(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			log.Debugf("No configuration file %s, using defaults", file)
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load configuration %s: %w", file, err)
	}
	return appConfig, nil
}

func openSession() (*launch.Session, error) {
	if cfg.Browser.Driver == config.DriverFirefox {
		if err := firefox.Install(cfg.Debug); err != nil {
			return nil, fmt.Errorf("install playwright failed: %w", err)
		}
	}
	session, err := launch.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not launch %s: %w", cfg.Browser.Driver, err)
	}
	return session, nil
}

// startFixture serves the demo site in the background. The returned func stops it.
func startFixture() (func(), error) {
	if !flagFixture {
		return func() {}, nil
	}
	server, err := fixture.NewServer(cfg)
	if err != nil {
		return nil, err
	}
	go func() {
		log.Infof("Serving demo site on %s", cfg.FixtureURL())
		if errStart := server.Start(); errStart != nil {
			log.Errorf("Fixture server failed: %v", errStart)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if errStop := server.Stop(ctx); errStop != nil {
			log.Debugf("Error stopping fixture server: %v", errStop)
		}
	}, nil
}

func runChains(cmd *cobra.Command, args []string) error {
	registry, err := pages.NewRegistry()
	if err != nil {
		return err
	}
	r, err := runner.NewRunnerManager(cfg, registry, cfg.Debug)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		names = r.Names()
	}
	if len(names) == 0 {
		return fmt.Errorf("no chains found in %s", cfg.Runner.Dir)
	}

	stopFixture, err := startFixture()
	if err != nil {
		return err
	}
	defer stopFixture()

	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() {
		if errClose := session.Close(); errClose != nil {
			log.Debugf("Error closing browser: %v", errClose)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		r.Abort()
	}()

	failed := 0
	for _, name := range names {
		if cfg.Runner.FreshSession {
			if err = session.Reset(); err != nil {
				log.Warnf("Error resetting browser session: %v", err)
			}
		}
		result, errRun := r.Run(ctx, name, session.Driver, nil)
		printResult(cmd, name, result, errRun)
		if errRun != nil {
			failed++
		}
		if ctx.Err() != nil {
			break
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d chains failed", failed, len(names))
	}
	return nil
}

func printResult(cmd *cobra.Command, name string, result *runner.RunnerResult, err error) {
	out := cmd.OutOrStdout()
	status := "ok"
	if err != nil {
		status = "FAIL"
	}
	if result == nil {
		_, _ = fmt.Fprintf(out, "%-4s %s: %v\n", status, name, err)
		return
	}
	trail := make([]string, len(result.Pages))
	for i, key := range result.Pages {
		trail[i] = string(key)
	}
	_, _ = fmt.Fprintf(out, "%-4s %s (%v): %s\n", status, name, result.Duration.Round(time.Millisecond), strings.Join(trail, " -> "))
	if err != nil {
		_, _ = fmt.Fprintf(out, "     %v\n", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	server, err := fixture.NewServer(cfg)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Debugf("Received shutdown signal. Cleaning up...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errStop := server.Stop(ctx); errStop != nil {
			log.Debugf("Error stopping fixture server: %v", errStop)
		}
	}()

	log.Infof("Serving demo site on %s", cfg.FixtureURL())
	return server.Start()
}

func runPages(cmd *cobra.Command, args []string) error {
	registry, err := pages.NewRegistry()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, d := range registry.Descriptors() {
		successor := string(d.Successor)
		if d.Terminal() {
			successor = "(terminal)"
		}
		_, _ = fmt.Fprintf(out, "%s -> %s\n", d.Key, successor)
		for _, name := range elementNames(d) {
			_, _ = fmt.Fprintf(out, "    %-14s %s\n", name, d.Locators[name])
		}
	}
	return nil
}

func elementNames(d *page.Descriptor) []string {
	names := make([]string, 0, len(d.Locators))
	for name := range d.Locators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runAPI(cmd *cobra.Command, args []string) error {
	registry, err := pages.NewRegistry()
	if err != nil {
		return err
	}
	r, err := runner.NewRunnerManager(cfg, registry, cfg.Debug)
	if err != nil {
		return err
	}

	stopFixture, err := startFixture()
	if err != nil {
		return err
	}
	defer stopFixture()

	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() {
		log.Debugf("Closing browser session...")
		if errClose := session.Close(); errClose != nil {
			log.Debugf("Error closing browser session: %v", errClose)
		}
	}()

	// Create API server configuration
	apiConfig := &api.ServerConfig{
		Port:     cfg.ApiPort,
		Debug:    cfg.Debug,
		Registry: registry,
		Runner:   r,
		Session:  session,
	}
	apiServer := api.NewServer(apiConfig, cfg)

	errChan := make(chan error, 1)
	go func() {
		log.Infof("Starting API server on port %s", apiConfig.Port)
		errChan <- apiServer.Start()
	}()

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err = <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-sigChan:
		log.Debugf("Received shutdown signal. Cleaning up...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err = apiServer.Stop(ctx); err != nil {
			log.Debugf("Error stopping API server: %v", err)
		}
		log.Debugf("Cleanup completed. Exiting...")
		return nil
	}
}
