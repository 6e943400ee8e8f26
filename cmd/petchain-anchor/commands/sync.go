package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DogStark/petchain-anchor/anchor"
	"github.com/DogStark/petchain-anchor/errors"
)

// SyncCmd anchors a single record from the command line.
var SyncCmd = &cobra.Command{
	Use:   "sync <record-id> <record-type>",
	Short: "Anchor a record in IPFS and on the ledger",
	Long: `Encrypt a record, upload it to IPFS, and anchor its hash on the ledger.

Record data is passed with --data as inline JSON or @file.

Examples:
  petchain-anchor sync r1 VACCINATION --data '{"name":"Rabies","dose":2}'
  petchain-anchor sync r2 TREATMENT --data @treatment.json`,
	Args: cobra.ExactArgs(2),
	RunE: runSync,
}

var syncDataFlag string

func init() {
	SyncCmd.Flags().StringVarP(&syncDataFlag, "data", "d", "", "Record data as inline JSON or @file (required)")
	SyncCmd.MarkFlagRequired("data")
}

// parseDataFlag decodes inline JSON or an @file reference.
func parseDataFlag(raw string) (any, error) {
	payload := []byte(raw)
	if strings.HasPrefix(raw, "@") {
		var err error
		payload, err = os.ReadFile(strings.TrimPrefix(raw, "@"))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read data file")
		}
	}

	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errors.Wrap(err, "data is not valid JSON")
	}
	return data, nil
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to format output")
	}
	fmt.Println(string(output))
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	recordID, recordType := args[0], anchor.RecordType(args[1])

	data, err := parseDataFlag(syncDataFlag)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	service, database, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	state, err := service.SyncRecord(cmd.Context(), recordID, recordType, data)
	if err != nil {
		return err
	}

	if err := printJSON(state); err != nil {
		return err
	}
	if state.Status == anchor.StatusFailed {
		return errors.Newf("sync failed: %s", state.LastError)
	}
	return nil
}
