package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewJobCmd создаёт группу команд для управления job.
func NewJobCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage the job",
	}

	cmd.AddCommand(
		newJobSubmitCmd(clientFn, outputFn),
		newJobShowCmd(clientFn, outputFn),
		newJobDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newJobSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var label string
	var deliveryURL string
	var maxDuration int

	cmd := &cobra.Command{
		Use:   "submit SOURCE_FILE",
		Short: "Submit a job with the given YAML source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read source file: %w", err)
			}

			err = client.SubmitJob(SubmitJobRequest{
				Label:                    label,
				EventDeliveryURL:         deliveryURL,
				MaximumDurationInSeconds: maxDuration,
				Source:                   string(source),
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Job submitted: %s", label))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "label", "", "Job label")
	cmd.Flags().StringVar(&deliveryURL, "delivery-url", "", "Worker event delivery endpoint")
	cmd.Flags().IntVar(&maxDuration, "max-duration", 0, "Maximum job duration in seconds")
	cmd.MarkFlagRequired("label")
	cmd.MarkFlagRequired("delivery-url")
	cmd.MarkFlagRequired("max-duration")

	return cmd
}

func newJobShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the job, its pipeline stages and tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			job, err := client.GetJob()
			if errors.Is(err, ErrNoJob) {
				out.Success("No job submitted")
				return nil
			}
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(job)
				return nil
			}

			out.KeyValues([][2]string{
				{"LABEL", job.Label},
				{"DELIVERY_URL", job.EventDeliveryURL},
				{"MAX_DURATION", strconv.Itoa(job.MaximumDurationInSeconds) + "s"},
				{"STARTED", job.StartDateTime},
				{"COMPILATION", job.CompilationState},
				{"EXECUTION", job.ExecutionState},
				{"EVENT_DELIVERY", job.EventDeliveryState},
			})

			if len(job.Tests) == 0 {
				return nil
			}

			headers := []string{"POSITION", "SOURCE", "TARGET", "BROWSER", "STEPS", "STATE"}
			rows := make([][]string, len(job.Tests))
			for i, t := range job.Tests {
				rows[i] = []string{
					strconv.Itoa(t.Position),
					t.Source,
					t.Target,
					t.Configuration.Browser,
					strconv.Itoa(t.StepCount),
					t.State,
				}
			}

			out.Table(headers, rows)
			return nil
		},
	}
}

func newJobDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the job and all its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteJob(); err != nil {
				return err
			}

			out.Success("Job deleted")
			return nil
		},
	}
}
