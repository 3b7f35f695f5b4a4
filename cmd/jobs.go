package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iyedlimem/Flenci-server-side/cache"
	"github.com/iyedlimem/Flenci-server-side/config"
	"github.com/iyedlimem/Flenci-server-side/db"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs <jobId>",
	Short: "Inspect a pipeline job record",
	Long:  `Look up the cached state of a pipeline job by its ID. Records expire 24 hours after the job's last transition.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer db.CloseRedis()

		rec, err := cache.GetJobRecord(context.Background(), args[0])
		if err != nil {
			log.Fatalf("Failed to look up job: %v", err)
		}
		if rec == nil {
			fmt.Println("No record for this job ID (unknown or expired).")
			return
		}

		fmt.Printf("Job:      %s\n", rec.JobID)
		fmt.Printf("Kind:     %s\n", rec.Kind)
		fmt.Printf("State:    %s\n", rec.State)
		if rec.ErrorKind != "" {
			fmt.Printf("Error:    %s\n", rec.ErrorKind)
		}
		if rec.Warning != "" {
			fmt.Printf("Warning:  %s\n", rec.Warning)
		}
		fmt.Printf("Updated:  %s\n", time.Unix(rec.UpdatedAt, 0).Format("2006-01-02 15:04:05"))
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
