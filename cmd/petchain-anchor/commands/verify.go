package commands

import (
	"github.com/spf13/cobra"

	"github.com/DogStark/petchain-anchor/anchor"
	"github.com/DogStark/petchain-anchor/errors"
)

// VerifyCmd re-checks a synced record against store and ledger.
var VerifyCmd = &cobra.Command{
	Use:   "verify <record-id> <record-type>",
	Short: "Verify a synced record against store and ledger",
	Long: `Re-hash the supplied record data and compare it against the anchored
hash locally, on the ledger, and against the encrypted copy in IPFS.

Examples:
  petchain-anchor verify r1 VACCINATION --data '{"name":"Rabies","dose":2}'
  petchain-anchor verify r2 TREATMENT --data @treatment.json`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

var verifyDataFlag string

func init() {
	VerifyCmd.Flags().StringVarP(&verifyDataFlag, "data", "d", "", "Record data as inline JSON or @file (required)")
	VerifyCmd.MarkFlagRequired("data")
}

func runVerify(cmd *cobra.Command, args []string) error {
	recordID, recordType := args[0], anchor.RecordType(args[1])

	data, err := parseDataFlag(verifyDataFlag)
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

	report, err := service.VerifyRecord(cmd.Context(), recordID, recordType, data)
	if err != nil {
		return err
	}

	if err := printJSON(report); err != nil {
		return err
	}
	if !report.Integrity.Verified() {
		return errors.New("integrity check failed")
	}
	return nil
}
