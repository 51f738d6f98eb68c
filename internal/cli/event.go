package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewEventCmd создаёт группу команд для просмотра worker events.
func NewEventCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Inspect worker events",
	}

	cmd.AddCommand(newEventShowCmd(clientFn, outputFn))

	return cmd
}

func newEventShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a worker event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			event, err := client.GetEvent(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "SEQ", "TYPE", "STATE", "ATTEMPTS", "CREATED"},
				[][]string{{
					event.ID,
					strconv.FormatInt(event.SequenceNumber, 10),
					event.Type,
					event.State,
					strconv.Itoa(event.Attempts),
					event.CreatedAt,
				}},
				event,
			)
			return nil
		},
	}
}
