package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/franckalain/freshness/internal/app"
	"github.com/franckalain/freshness/internal/freshness"
	"github.com/franckalain/freshness/internal/models"
)

var (
	predictDate string
	predictJSON bool
)

var predictCmd = &cobra.Command{
	Use:   "predict <image> <item>",
	Short: "Score a photo and project its freshness decay",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		imagePath, item := args[0], args[1]

		var uploadDate time.Time
		if predictDate != "" {
			d, err := time.ParseInLocation(time.DateOnly, predictDate, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", predictDate)
			}
			uploadDate = d
		}

		data, err := os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Pipeline.Predict(cmd.Context(), models.PredictionRequest{
			Image:      data,
			Filename:   filepath.Base(imagePath),
			ItemID:     item,
			UploadDate: uploadDate,
		})
		if err != nil {
			return err
		}

		if predictJSON {
			b, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal report json: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func printReport(w io.Writer, r *models.FreshnessReport) {
	fmt.Fprintln(w, "--- FRESHNESS REPORT ---")
	fmt.Fprintf(w, "Item: %s\n", r.Item)
	fmt.Fprintf(w, "Days passed: %d\n", r.Decay.DaysPassed)
	fmt.Fprintf(w, "\nInitial Freshness: %.2f%%\n", r.InitialFreshness)

	fmt.Fprintln(w)
	for _, c := range freshness.Conditions {
		fmt.Fprintf(w, "Current Freshness (%s): %.2f%%\n", models.ConditionName(c), r.Conditions[c].Freshness)
	}

	for _, c := range freshness.Conditions {
		fmt.Fprintf(w, "\n%s CONDITIONS:\n", strings.ToUpper(models.ConditionName(c)))
		fmt.Fprintf(w, "   Estimated Edible Days Left: %.2f days\n", r.Conditions[c].DaysLeft)
	}

	fmt.Fprintf(w, "\nFinal Status: %s %s\n", r.StatusIcon, r.Status)
	fmt.Fprintf(w, "Recommendation: %s\n", r.Recommendation)
}

func init() {
	predictCmd.Flags().StringVar(&predictDate, "date", "", "Capture date (YYYY-MM-DD), defaults to today")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Output the report as JSON")
	rootCmd.AddCommand(predictCmd)
}
