// Package ledger implements the Stellar ledger client used to anchor record
// proofs. An anchor is a single ManageData operation writing a small
// key/value entry into the signing identity's account: the key is derived
// from the record hash, the value is the content-store address.
//
// The client holds one signing identity and one Horizon connection,
// constructed explicitly so tests can inject stubs. Concurrent anchor
// submissions from the same identity can hit sequence conflicts; submissions
// are not serialized here, conflicts surface as submission errors and follow
// the caller's normal retry path. A single-writer queue per identity would
// remove that failure mode.
package ledger

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"go.uber.org/zap"

	"github.com/DogStark/petchain-anchor/errors"
)

const (
	// Server-side anchor key scheme: "MR_" + first 10 hex chars of the
	// record hash. The browser mirror uses its own "pet_{petId}_{recordType}"
	// scheme; the two are live on ledgers and must not be unified.
	anchorKeyPrefix  = "MR_"
	anchorKeyHashLen = 10

	// EntryValueLimit is the ledger's ManageData value size limit in bytes.
	EntryValueLimit = 64

	// Transaction validity window in seconds. Bounds the inclusion wait so a
	// submission cannot hang indefinitely on a congested network.
	txTimeout = 300
)

// AnchorKey derives the ledger entry key for a record hash. AnchorRecord and
// VerifyOnChain both go through this function; the truncation rule must stay
// identical on both paths.
func AnchorKey(recordHash string) string {
	h := recordHash
	if len(h) > anchorKeyHashLen {
		h = h[:anchorKeyHashLen]
	}
	return anchorKeyPrefix + h
}

// Horizon is the subset of the Horizon client the ledger client needs.
// *horizonclient.Client satisfies it.
type Horizon interface {
	AccountDetail(request horizonclient.AccountRequest) (hProtocol.Account, error)
	SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error)
}

// Config configures a Client.
type Config struct {
	Network     string        // "testnet" or "pubnet"
	HorizonURL  string        // empty = network default
	SigningSeed string        // empty = read-only/degraded mode
	AccountID   string        // read-only mode: account to read anchors from
	Timeout     time.Duration // HTTP timeout for Horizon calls
}

// Client anchors and verifies record proofs on Stellar.
type Client struct {
	horizon    Horizon
	kp         *keypair.Full
	accountID  string
	passphrase string
	log        *zap.SugaredLogger
}

// New constructs a Client. A missing signing seed is not an error: the client
// comes up in read-only mode and AnchorRecord fails with
// ErrLedgerNotConfigured until a seed is configured.
func New(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	passphrase := network.TestNetworkPassphrase
	horizonURL := "https://horizon-testnet.stellar.org"
	if cfg.Network == "pubnet" {
		passphrase = network.PublicNetworkPassphrase
		horizonURL = "https://horizon.stellar.org"
	}
	if cfg.HorizonURL != "" {
		horizonURL = cfg.HorizonURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		horizon: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP:       &http.Client{Timeout: timeout},
		},
		accountID:  cfg.AccountID,
		passphrase: passphrase,
		log:        log,
	}

	if cfg.SigningSeed != "" {
		kp, err := keypair.ParseFull(cfg.SigningSeed)
		if err != nil {
			return nil, errors.Wrap(err, "invalid ledger signing seed")
		}
		c.kp = kp
		c.accountID = kp.Address()
	} else if log != nil {
		log.Warnw("No ledger signing seed configured, running in read-only mode",
			"network", cfg.Network,
		)
	}

	return c, nil
}

// NewWithHorizon constructs a Client against a provided Horizon
// implementation. Used by tests and by deployments that wrap Horizon access.
func NewWithHorizon(h Horizon, seed, passphrase string, log *zap.SugaredLogger) (*Client, error) {
	c := &Client{horizon: h, passphrase: passphrase, log: log}
	if seed != "" {
		kp, err := keypair.ParseFull(seed)
		if err != nil {
			return nil, errors.Wrap(err, "invalid ledger signing seed")
		}
		c.kp = kp
		c.accountID = kp.Address()
	}
	return c, nil
}

// Configured reports whether a signing identity is available.
func (c *Client) Configured() bool {
	return c.kp != nil
}

// AccountID returns the identity whose account holds the anchors, or "" in
// fully unconfigured read-only mode.
func (c *Client) AccountID() string {
	return c.accountID
}

// AnchorRecord writes the (recordHash → storeAddress) anchor entry and
// returns the ledger transaction hash. Failures are not retried here; retry
// is the orchestration layer's responsibility.
func (c *Client) AnchorRecord(ctx context.Context, recordHash, storeAddress string) (string, error) {
	ref, _, err := c.AnchorEntry(ctx, AnchorKey(recordHash), storeAddress)
	return ref, err
}

// AnchorEntry writes an arbitrary named entry into the signing account's
// metadata and returns the transaction hash and fee charged. Values longer
// than EntryValueLimit are rejected by the network, not truncated here.
func (c *Client) AnchorEntry(ctx context.Context, key, value string) (string, int64, error) {
	if c.kp == nil {
		return "", 0, errors.Wrapf(errors.ErrLedgerNotConfigured, "cannot anchor entry %q", key)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, errors.Wrap(err, "anchor cancelled")
	}

	account, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: c.kp.Address()})
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrLedgerSubmission, describeHorizonError(err))
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &account,
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.ManageData{Name: key, Value: []byte(value)},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(txTimeout)},
	})
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrLedgerSubmission, err.Error())
	}

	signed, err := tx.Sign(c.passphrase, c.kp)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrLedgerSubmission, err.Error())
	}

	resp, err := c.horizon.SubmitTransaction(signed)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrLedgerSubmission, describeHorizonError(err))
	}

	if c.log != nil {
		c.log.Infow("Anchored ledger entry",
			"key", key,
			"tx", resp.Hash,
			"fee", resp.FeeCharged,
		)
	}

	return resp.Hash, resp.FeeCharged, nil
}

// VerifyOnChain reads back the anchored store address for a record hash.
// Returns "" with a nil error when the entry is confirmed absent; errors are
// reserved for connectivity failures.
func (c *Client) VerifyOnChain(ctx context.Context, recordHash string) (string, error) {
	if c.accountID == "" {
		return "", errors.Wrap(errors.ErrLedgerNotConfigured, "no account to read anchors from")
	}
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(err, "verify cancelled")
	}

	account, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: c.accountID})
	if err != nil {
		return "", errors.Wrapf(err, "failed to load account %s", c.accountID)
	}

	encoded, ok := account.Data[AnchorKey(recordHash)]
	if !ok {
		return "", nil
	}

	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrapf(err, "malformed data entry for %s", AnchorKey(recordHash))
	}

	return string(value), nil
}

// describeHorizonError extracts the ledger's structured rejection reason when
// the error carries one.
func describeHorizonError(err error) string {
	herr := horizonclient.GetError(err)
	if herr == nil {
		return err.Error()
	}
	if codes, cerr := herr.ResultCodes(); cerr == nil && codes != nil {
		return errors.Newf("%s: tx %s, operations %v",
			herr.Problem.Title, codes.TransactionCode, codes.OperationCodes).Error()
	}
	if herr.Problem.Title != "" {
		return herr.Problem.Title
	}
	return herr.Error()
}
