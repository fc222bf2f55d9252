package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/drvstore/internal/audit"
	"github.com/breeze-rmm/drvstore/internal/config"
	"github.com/breeze-rmm/drvstore/internal/devicemap"
	"github.com/breeze-rmm/drvstore/internal/driverstore"
	"github.com/breeze-rmm/drvstore/internal/hostinfo"
	"github.com/breeze-rmm/drvstore/internal/logging"
	"github.com/breeze-rmm/drvstore/internal/privilege"
)

var log = logging.L("main")

var (
	version      = "0.1.0"
	cfgFile      string
	backendFlag  string
	imageFlag    string
	outputFormat string
)

// journaledCommands change the store or copy packages out of it.
var journaledCommands = map[string]bool{"delete": true, "prune": true, "add": true, "export": true}

// errFailed signals a partial failure that was already reported.
var errFailed = errors.New("one or more operations failed")

var rootCmd = &cobra.Command{
	Use:           "drvstore",
	Short:         "Inspect and clean up the Windows driver store",
	Long:          `drvstore lists third-party driver packages, finds superseded ones and removes, adds or exports packages on the running system or an offline image.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "drvstore v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is drvstore.yaml in the config directory)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "backend to use: auto, native, dism or pnputil")
	rootCmd.PersistentFlags().StringVar(&imageFlag, "image", "", "root of an offline image to service instead of the running system")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json or yaml")

	rootCmd.AddCommand(listCmd, deleteCmd, pruneCmd, addCmd, exportCmd, backendCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// session is the per-command environment: effective config and log output.
type session struct {
	cfg      *config.Config
	journal  *audit.Journal
	logClose func() error
}

func (s *session) Close() {
	if err := s.journal.Close(); err != nil {
		log.Warn("closing change journal failed", logging.KeyError, err)
	}
	if s.logClose != nil {
		_ = s.logClose()
	}
}

// record journals a mutating command's outcome; a no-op without audit_file.
func (s *session) record(event string, b driverstore.Backend, report driverstore.BatchReport) {
	s.journal.Record(event, b.ID(), b.Target().String(), report)
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if backendFlag != "" {
		cfg.Backend = backendFlag
	}
	if imageFlag != "" {
		cfg.ImagePath = imageFlag
	}

	result := cfg.ValidateTiered()
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "config warning: %v\n", w)
	}
	if result.HasFatals() {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(result.Fatals...))
	}
	if err := validateFormat(outputFormat); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	var out io.Writer = cmd.ErrOrStderr()
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "log file unavailable, logging to stderr only: %v\n", err)
		} else {
			out = io.MultiWriter(out, rw)
			s.logClose = rw.Close
		}
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, out)

	if cfg.AuditFile != "" && journaledCommands[cmd.Name()] {
		j, err := audit.Open(cfg.AuditFile, cfg.AuditMaxSizeMB, cfg.AuditMaxBackups)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open change journal: %w", err)
		}
		s.journal = j
	}

	if privilege.RequiresElevation(cmd.Name()) && !privilege.IsElevated() {
		log.Warn("not running elevated, changes to the driver store will likely be denied", "command", cmd.Name())
	}
	return s, nil
}

// openBackend selects the driver store backend for the configured target.
func (s *session) openBackend(ctx context.Context) (driverstore.Backend, error) {
	cfg := s.cfg

	host, err := hostinfo.Probe(ctx)
	if err != nil {
		log.Warn("host probe failed, servicing API availability unknown", "error", err)
	}

	var devices devicemap.Source
	if cfg.Online() {
		src, err := devicemap.NewSource(cfg.DeviceSource)
		if err != nil {
			log.Warn("device source unavailable, device correlation disabled", "source", cfg.DeviceSource, "error", err)
		} else {
			devices = src
		}
	}

	b, err := driverstore.Open(ctx, driverstore.Options{
		Preferred:             cfg.Backend,
		ImagePath:             cfg.ImagePath,
		WindowsDir:            cfg.TargetRoot(),
		PnputilPath:           cfg.PnputilPath,
		PnputilTimeoutSeconds: cfg.PnputilTimeoutSeconds,
		UseBackupPrivilege:    cfg.UseBackupPrivilege,
		Devices:               devices,
		Host:                  host,
	})
	if err != nil {
		return nil, err
	}
	logging.WithBackend(log, b.ID()).Info("backend ready", "target", b.Target().String())
	return b, nil
}
