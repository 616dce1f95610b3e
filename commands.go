package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tournevent/courierbridge/internal/credentials"
	"github.com/tournevent/courierbridge/internal/slips"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

var bookCmd = &cobra.Command{
	Use:   "book <order>",
	Short: "Book one delivery note with Leopards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.coordinator.Book(ctx, args[0])
			if err != nil {
				fmt.Printf("%s %s: %v\n", red("FAILED"), args[0], err)
				return err
			}
			fmt.Printf("%s %s  cn=%s  shipment=%s\n", green("BOOKED"), args[0], res.TrackingNumber, res.ShipmentID)
			if res.SlipLink != "" {
				fmt.Printf("  slip: %s\n", res.SlipLink)
			}
			return nil
		})
	},
}

var bulkEnqueue bool

var bulkBookCmd = &cobra.Command{
	Use:   "bulk-book <order>...",
	Short: "Book several delivery notes one at a time",
	Long: "Books the orders inline and prints the booked, skipped and failed buckets. " +
		"With --enqueue the job is published to the bulk booking topic instead.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			if bulkEnqueue {
				if !a.cfg.KafkaEnabled() {
					return errors.New("--enqueue requires KAFKA_BROKERS")
				}
				q, err := a.bulk.Enqueue(ctx, args)
				if err != nil {
					return err
				}
				fmt.Printf("%s job %s with %d orders\n", green("QUEUED"), q.JobID, q.Count)
				return nil
			}

			job, err := a.bulk.NewJob(args)
			if err != nil {
				return err
			}
			report, err := a.worker.Process(ctx, job)
			if err != nil {
				return err
			}
			for _, b := range report.Booked {
				fmt.Printf("%s  %s  cn=%s\n", green("BOOKED "), b.Order, b.ConsignmentNumber)
			}
			for _, s := range report.Skipped {
				fmt.Printf("%s  %s  (%s)\n", yellow("SKIPPED"), s.Order, s.Reason)
			}
			for _, f := range report.Failed {
				fmt.Printf("%s  %s  %s\n", red("FAILED "), f.Order, f.Error)
			}
			fmt.Printf("\n%d booked, %d skipped, %d failed\n", len(report.Booked), len(report.Skipped), len(report.Failed))
			return nil
		})
	},
}

var syncCitiesCmd = &cobra.Command{
	Use:   "sync-cities",
	Short: "Refresh the Leopards service-area list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.cities.Sync(ctx)
			if err != nil {
				return err
			}
			if res.Message != "" {
				fmt.Println(yellow(res.Message))
				return nil
			}
			fmt.Printf("%s %d of %d cities upserted\n", green("SYNCED"), res.Upserted, res.TotalFromAPI)
			return nil
		})
	},
}

var trackingLimit int

var backfillCmd = &cobra.Command{
	Use:   "backfill-tracking",
	Short: "Create tracking snapshots for booked orders that have none",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			limit := trackingLimit
			if limit <= 0 {
				limit = a.cfg.BackfillLimit
			}
			res, err := a.backfiller.Backfill(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Printf("%s created=%d existing=%d seen=%d\n", green("BACKFILLED"), res.Created, res.SkippedExisting, res.TotalSeen)
			return nil
		})
	},
}

var syncTrackingCmd = &cobra.Command{
	Use:   "sync-tracking",
	Short: "Poll Leopards once for every undelivered snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.poller.SyncOnce(ctx, trackingLimit)
			if err != nil {
				return err
			}
			fmt.Printf("%s seen=%d changed=%d delivered=%d skipped=%d\n",
				green("SYNCED"), res.Seen, res.Changed, res.Delivered, res.Skipped)
			return nil
		})
	},
}

var (
	cleanupSnapshotDays int
	cleanupEventDays    int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete delivered snapshots and tracking events past retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			snapDays, eventDays := cleanupSnapshotDays, cleanupEventDays
			if snapDays <= 0 {
				snapDays = a.cfg.SnapshotRetentionDays
			}
			if eventDays <= 0 {
				eventDays = a.cfg.EventRetentionDays
			}
			snaps, err := a.cleaner.CleanSnapshots(ctx, snapDays)
			if err != nil {
				return err
			}
			events, err := a.cleaner.CleanEvents(ctx, eventDays)
			if err != nil {
				return err
			}
			fmt.Printf("%s snapshots=%d events=%d\n", green("PURGED"), snaps, events)
			return nil
		})
	},
}

var slipCmd = &cobra.Command{
	Use:   "slip <order>",
	Short: "Print the slip link of a booked order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			link, err := a.slips.SlipLink(ctx, args[0])
			if err != nil {
				return err
			}
			if link == "" {
				fmt.Println(yellow("no slip link"))
				return nil
			}
			fmt.Println(link)
			return nil
		})
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels <order>...",
	Short: "Collect slip links for several orders",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			labels, err := a.slips.BulkLabels(ctx, args)
			if err != nil {
				return err
			}
			for _, u := range labels.URLs {
				fmt.Println(u)
			}
			if len(labels.Skipped) > 0 {
				fmt.Printf("%s %s\n", yellow("skipped:"), strings.Join(labels.Skipped, ", "))
			}
			return nil
		})
	},
}

var packingSlipCmd = &cobra.Command{
	Use:   "packing-slip <shipment>",
	Short: "Generate the packing slip of a booked shipment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.slips.GeneratePackingSlip(ctx, args[0])
			if err != nil {
				return err
			}
			switch {
			case res.Message != "":
				fmt.Println(yellow(res.Message))
			case res.Type == slips.TypeHTML:
				fmt.Printf("%s %s\n", green("WRITTEN"), res.File)
			default:
				fmt.Printf("%s %s\n", green("LINKED"), res.File)
			}
			return nil
		})
	},
}

var sealRecipients []string

var sealPasswordCmd = &cobra.Command{
	Use:   "seal-password <password>",
	Short: "Encrypt the Leopards API password for LEOPARDS_API_PASSWORD_SEALED",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sealed, err := credentials.Seal(args[0], sealRecipients...)
		if err != nil {
			return err
		}
		fmt.Println(sealed)
		return nil
	},
}

func init() {
	bulkBookCmd.Flags().BoolVar(&bulkEnqueue, "enqueue", false, "publish the job to Kafka instead of booking inline")

	backfillCmd.Flags().IntVar(&trackingLimit, "limit", 0, "maximum orders to scan (default BACKFILL_LIMIT)")
	syncTrackingCmd.Flags().IntVar(&trackingLimit, "limit", 0, "maximum snapshots to poll (default POLL_BATCH_SIZE)")

	cleanupCmd.Flags().IntVar(&cleanupSnapshotDays, "snapshot-days", 0, "delivered snapshot retention in days")
	cleanupCmd.Flags().IntVar(&cleanupEventDays, "event-days", 0, "tracking event retention in days")

	sealPasswordCmd.Flags().StringSliceVarP(&sealRecipients, "recipient", "r", nil, "age recipient (age1...), repeatable")
	_ = sealPasswordCmd.MarkFlagRequired("recipient")

	rootCmd.AddCommand(
		bookCmd,
		bulkBookCmd,
		syncCitiesCmd,
		backfillCmd,
		syncTrackingCmd,
		cleanupCmd,
		slipCmd,
		labelsCmd,
		packingSlipCmd,
		sealPasswordCmd,
	)
}
