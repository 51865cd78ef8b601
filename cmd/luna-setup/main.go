package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lunatools/luna-setup/phases"
	"github.com/lunatools/luna-setup/phases/directories"
	"github.com/lunatools/luna-setup/phases/downloadunlocker"
	"github.com/lunatools/luna-setup/phases/elevate"
	"github.com/lunatools/luna-setup/phases/extractinjector"
	"github.com/lunatools/luna-setup/phases/injectorconfig"
	"github.com/lunatools/luna-setup/phases/migrate"
	"github.com/lunatools/luna-setup/phases/preflight"
	"github.com/lunatools/luna-setup/phases/security"
	"github.com/lunatools/luna-setup/phases/shortcuts"
	"github.com/lunatools/luna-setup/phases/unlockerconfig"
	"github.com/lunatools/luna-setup/tui"
	"github.com/lunatools/luna-setup/utils/download"
	"github.com/lunatools/luna-setup/utils/extract"
	"github.com/lunatools/luna-setup/utils/faults"
	"github.com/lunatools/luna-setup/utils/legacyconfig"
	"github.com/lunatools/luna-setup/utils/settings"
)

// Exit codes, kept stable for scripts wrapping the installer.
const (
	exitGeneral   = 1
	exitAdmin     = 2
	exitNetwork   = 3
	exitFile      = 4
	exitConfig    = 5
	exitCancelled = 6
)

type cliFlags struct {
	settingsPath string
	installRoot  string
	downloadURL  string
	appID        string
	dryRun       bool
	configOnly   bool
	skipAdmin    bool
	skipSecurity bool
	noCleanup    bool
	force        bool
	quiet        bool
	timeout      time.Duration
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           "luna-setup",
		Short:         "Installer for the Luna injector and DLC unlocker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.settingsPath, "settings", "luna-setup.yaml", "path to the settings file")

	setup := &cobra.Command{
		Use:   "setup",
		Short: "Run the full installation pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, flags)
		},
	}
	setup.Flags().StringVar(&flags.installRoot, "install-root", "", "override the installation directory")
	setup.Flags().StringVar(&flags.downloadURL, "download-url", "", "override the unlocker download URL")
	setup.Flags().StringVar(&flags.appID, "app-id", "", "application id to seed into the AppList")
	setup.Flags().BoolVar(&flags.dryRun, "dry-run", false, "report intended changes without applying them")
	setup.Flags().BoolVar(&flags.configOnly, "config-only", false, "write configuration without installing binaries")
	setup.Flags().BoolVar(&flags.skipAdmin, "skip-admin", false, "skip the administrator rights check")
	setup.Flags().BoolVar(&flags.skipSecurity, "skip-security", false, "skip antivirus exclusion registration")
	setup.Flags().BoolVar(&flags.noCleanup, "no-cleanup", false, "keep temporary download files after a successful run")
	setup.Flags().BoolVar(&flags.force, "force", false, "overwrite existing files without asking")
	setup.Flags().BoolVar(&flags.quiet, "quiet", false, "plain line output instead of the interactive UI")
	setup.Flags().DurationVar(&flags.timeout, "timeout", 0, "per-operation timeout for elevated commands")
	root.AddCommand(setup)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCode(err)
	}
	return 0
}

func runSetup(cmd *cobra.Command, flags *cliFlags) error {
	cfg, err := settings.Load(flags.settingsPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, flags)

	options := phases.Options{
		DryRun:          flags.dryRun,
		ConfigOnly:      flags.configOnly,
		SkipAdmin:       flags.skipAdmin,
		SkipSecurity:    flags.skipSecurity,
		NoCleanup:       flags.noCleanup,
		Force:           flags.force,
		Timeout:         flags.timeout,
		AppID:           cfg.AppID,
		DownloadURL:     cfg.DownloadURL,
		UnlockerVersion: cfg.UnlockerVersion,
	}
	if options.Timeout <= 0 && cfg.TimeoutSeconds > 0 {
		options.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	paths := phases.DefaultPaths(cfg.InstallRoot)
	paths.DesktopDir = cfg.DesktopDir
	paths.InjectorArchive = cfg.InjectorArchive
	paths.LegacyInjectorConfig = cfg.LegacyInjectorConfig
	paths.LegacyUnlockerConfig = cfg.LegacyUnlockerConfig
	if paths.DesktopDir == "" {
		paths.DesktopDir = defaultDesktopDir()
	}

	rc := phases.NewRunContext(options, paths)

	pipeline := []phases.Phase{
		preflight.New(cfg.BlockingApps),
		elevate.New(),
		migrate.New(),
		directories.New(),
		security.New(),
		extractinjector.New(),
		injectorconfig.New(),
		downloadunlocker.New(),
		unlockerconfig.New(),
		shortcuts.New(paths.DesktopDir),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.quiet {
		return runPlain(ctx, pipeline, rc, flags.force)
	}
	return runInteractive(ctx, pipeline, rc)
}

func runPlain(ctx context.Context, pipeline []phases.Phase, rc *phases.RunContext, force bool) error {
	var confirm phases.ConfirmHandler = tui.NewConsoleConfirm(os.Stdin, os.Stderr)
	if force {
		confirm = tui.AlwaysConfirm{}
	}
	manager := phases.NewManager(
		phases.WithObserver(tui.NewConsoleObserver(os.Stderr)),
		phases.WithConfirmHandler(confirm),
	)
	if err := manager.Register(pipeline...); err != nil {
		return err
	}
	summary, err := manager.Run(ctx, rc)
	if summary != nil {
		fmt.Fprint(os.Stdout, summary.Render())
	}
	return err
}

func runInteractive(ctx context.Context, pipeline []phases.Phase, rc *phases.RunContext) error {
	app, err := tui.New(
		tui.WithPhases(pipeline...),
		tui.WithRunContext(rc),
	)
	if err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	summary := app.Summary()
	if summary == nil {
		return faults.Cancelled(errors.New("setup interrupted"))
	}
	fmt.Fprint(os.Stdout, summary.Render())
	return summary.Err
}

func applyFlagOverrides(cfg *settings.Settings, flags *cliFlags) {
	if flags.installRoot != "" {
		cfg.InstallRoot = flags.installRoot
	}
	if flags.downloadURL != "" {
		cfg.DownloadURL = flags.downloadURL
	}
	if flags.appID != "" {
		cfg.AppID = flags.appID
	}
}

func defaultDesktopDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home + string(os.PathSeparator) + "Desktop"
}

// exitCode maps a pipeline error to the installer's documented exit codes.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if faults.IsCancelled(err) {
		return exitCancelled
	}

	var adminErr elevate.AdminRequiredError
	if errors.As(err, &adminErr) {
		return exitAdmin
	}

	// Transport failures (DNS, resets, TLS) surface as *url.Error or a
	// net.Error rather than a download.StatusError.
	var (
		statusErr download.StatusError
		urlErr    *url.Error
		netErr    net.Error
	)
	if errors.As(err, &statusErr) || errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return exitNetwork
	}

	var (
		archiveErr  extract.ArchiveError
		unsafeErr   extract.UnsafePathError
		missingErr  preflight.MissingArchiveError
		avErr       extractinjector.AntivirusInterferenceError
		blockingErr preflight.BlockingProcessError
	)
	if errors.As(err, &archiveErr) || errors.As(err, &unsafeErr) ||
		errors.As(err, &missingErr) || errors.As(err, &avErr) ||
		errors.As(err, &blockingErr) {
		return exitFile
	}

	var (
		parseErr   legacyconfig.ParseError
		loadErr    settings.LoadError
		invalidErr phases.ValidationError
	)
	if errors.As(err, &parseErr) || errors.As(err, &loadErr) || errors.As(err, &invalidErr) {
		return exitConfig
	}

	return exitGeneral
}
