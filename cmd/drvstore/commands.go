package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/breeze-rmm/drvstore/internal/audit"
	"github.com/breeze-rmm/drvstore/internal/driverpkg"
	"github.com/breeze-rmm/drvstore/internal/driverstore"
	"github.com/breeze-rmm/drvstore/internal/export"
	"github.com/breeze-rmm/drvstore/internal/obsolete"
)

var (
	listObsolete bool
	deleteForce  bool
	pruneDryRun  bool
	pruneForce   bool
	addInstall   bool
	exportAll    bool
	exportDest   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List third-party driver packages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, s *session, b driverstore.Backend) error {
			records, err := b.Enumerate(ctx)
			if err != nil {
				return err
			}
			if listObsolete {
				records = obsolete.Select(records)
			}
			return renderRecords(cmd.OutOrStdout(), outputFormat, records, b.Capabilities())
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <published-name>...",
	Short: "Delete driver packages by published name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, s *session, b driverstore.Backend) error {
			if deleteForce && !b.Capabilities().ForceDelete {
				return fmt.Errorf("backend %s does not support forced deletion", b.ID())
			}
			records, err := b.Enumerate(ctx)
			if err != nil {
				return err
			}

			found, missing := pick(records, args)
			report := driverstore.DeleteAll(ctx, b, found, deleteForce)
			report = withMissing(report, args, missing)
			s.record(audit.EventDelete, b, report)
			return finish(cmd, report)
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete superseded packages that no device uses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, s *session, b driverstore.Backend) error {
			if pruneForce && !b.Capabilities().ForceDelete {
				return fmt.Errorf("backend %s does not support forced deletion", b.ID())
			}
			records, err := b.Enumerate(ctx)
			if err != nil {
				return err
			}
			candidates := obsolete.Select(records)

			if pruneDryRun {
				plan := prunePlan{Candidates: candidates, Kept: obsolete.Newest(records)}
				return renderPrunePlan(cmd.OutOrStdout(), outputFormat, plan, b.Capabilities())
			}
			if len(candidates) == 0 && outputFormat == formatTable {
				fmt.Fprintln(cmd.OutOrStdout(), "No obsolete packages found.")
				return nil
			}
			report := driverstore.DeleteAll(ctx, b, candidates, pruneForce)
			s.record(audit.EventDelete, b, report)
			return finish(cmd, report)
		})
	},
}

var addCmd = &cobra.Command{
	Use:   "add <inf-path>",
	Short: "Add a driver package to the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, s *session, b driverstore.Backend) error {
			if addInstall && !b.Capabilities().InstallOnAdd {
				return fmt.Errorf("backend %s cannot install on add for %s", b.ID(), b.Target())
			}
			report := driverstore.NewBatchReport()
			report.Add(args[0], b.Add(ctx, args[0], addInstall))
			s.record(audit.EventAdd, b, report)
			return finish(cmd, report)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [<published-name>...]",
	Short: "Export driver packages to a directory or object store",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportAll == (len(args) > 0) {
			return fmt.Errorf("name packages to export or pass --all, not both")
		}
		return withBackend(cmd, func(ctx context.Context, s *session, b driverstore.Backend) error {
			caps := b.Capabilities()
			if exportAll && !caps.ExportAll || !exportAll && !caps.ExportPackage {
				return fmt.Errorf("backend %s does not support export", b.ID())
			}
			records, err := b.Enumerate(ctx)
			if err != nil {
				return err
			}

			cfg := s.cfg.Export
			sink, err := export.NewSink(ctx, cfg)
			if err != nil {
				return err
			}
			defer sink.Close()

			prefix := cfg.Prefix
			if exportDest != "" {
				prefix = exportDest
			}
			exporter := export.New(sink, prefix, cfg.Workers)

			var report driverstore.BatchReport
			if exportAll {
				report = exporter.ExportAll(ctx, records)
			} else {
				found, missing := pick(records, args)
				report = withMissing(exporter.ExportAll(ctx, found), args, missing)
			}
			s.record(audit.EventExport, b, report)
			return finish(cmd, report)
		})
	},
}

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Show the selected backend and its capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(ctx context.Context, s *session, b driverstore.Backend) error {
			return renderBackend(cmd.OutOrStdout(), outputFormat, describeBackend(b))
		})
	},
}

func init() {
	listCmd.Flags().BoolVar(&listObsolete, "obsolete", false, "only show packages that prune would delete")
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "delete even if devices still use the package")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "show what would be deleted without deleting")
	pruneCmd.Flags().BoolVar(&pruneForce, "force", false, "force deletion")
	addCmd.Flags().BoolVar(&addInstall, "install", false, "also install the driver on matching devices")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every package")
	exportCmd.Flags().StringVar(&exportDest, "dest", "", "destination prefix (overrides export.prefix)")
}

func withBackend(cmd *cobra.Command, fn func(ctx context.Context, s *session, b driverstore.Backend) error) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	b, err := s.openBackend(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, s, b)
}

// pick returns the records named in names, in the order named, and the
// names that matched nothing. Matching ignores case.
func pick(records []driverpkg.PackageRecord, names []string) (found []driverpkg.PackageRecord, missing map[string]bool) {
	byName := make(map[string]driverpkg.PackageRecord, len(records))
	for _, r := range records {
		byName[strings.ToLower(r.PublishedName)] = r
	}
	missing = map[string]bool{}
	for _, n := range names {
		if r, ok := byName[strings.ToLower(n)]; ok {
			found = append(found, r)
		} else {
			missing[n] = true
		}
	}
	return found, missing
}

// withMissing merges not-found names into report, keeping argument order.
func withMissing(report driverstore.BatchReport, names []string, missing map[string]bool) driverstore.BatchReport {
	if len(missing) == 0 {
		return report
	}
	merged := driverstore.NewBatchReport()
	next := 0
	for _, n := range names {
		if missing[n] {
			merged.Add(n, driverstore.Failed(fmt.Errorf("%s: %w", n, driverpkg.ErrNotFound), ""))
			continue
		}
		if next < len(report.Items) {
			it := report.Items[next]
			merged.Add(it.PublishedName, it.Result)
			next++
		}
	}
	return merged
}

func finish(cmd *cobra.Command, report driverstore.BatchReport) error {
	if err := renderReport(cmd.OutOrStdout(), outputFormat, report); err != nil {
		return err
	}
	if !report.OK {
		return errFailed
	}
	return nil
}
