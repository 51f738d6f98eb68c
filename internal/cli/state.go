package cli

import (
	"github.com/spf13/cobra"
)

// NewStateCmd создаёт команду просмотра агрегатного состояния.
func NewStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the aggregate application state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.ApplicationState()
			if err != nil {
				return err
			}

			out.Print(
				[]string{"APPLICATION", "COMPILATION", "EXECUTION", "EVENT_DELIVERY"},
				[][]string{{state.Application, state.Compilation, state.Execution, state.EventDelivery}},
				state,
			)
			return nil
		},
	}
}
