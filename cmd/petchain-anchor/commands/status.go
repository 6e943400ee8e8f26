package commands

import (
	"github.com/spf13/cobra"

	"github.com/DogStark/petchain-anchor/errors"
)

// StatusCmd shows the sync state for a record.
var StatusCmd = &cobra.Command{
	Use:   "status <record-id>",
	Short: "Show the sync state for a record",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	service, database, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	state, err := service.GetSyncStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	return printJSON(state)
}
