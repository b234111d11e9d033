package rpc

import (
	"context"
	"encoding/json"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/hashicorp/go-version"
	"github.com/marinade-finance/marinade-cli-utils/pkg/cliargs"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MinClusterVersion is the oldest node version known to serve every method used here.
const MinClusterVersion = "1.16.0"

// ErrUnsupportedCluster is returned by CheckVersion for nodes that are too old.
var ErrUnsupportedCluster = errors.New("unsupported cluster version")

// Client handles interactions with a Solana cluster.
type Client struct {
	*solanarpc.Client
	URL string
}

// NewClient creates a client for a URL or one of the cluster monikers.
func NewClient(urlOrMoniker string) (*Client, error) {
	if err := cliargs.IsURLOrMoniker(urlOrMoniker); err != nil {
		return nil, err
	}
	url := cliargs.NormalizeToURLIfMoniker(urlOrMoniker)
	return &Client{Client: solanarpc.New(url), URL: url}, nil
}

// TransactionReport is what debug shows about a landed transaction.
type TransactionReport struct {
	Signature string
	Slot      uint64
	Fee       uint64
	Err       string
	Logs      []string
}

// Failed reports whether the transaction landed with an error.
func (r *TransactionReport) Failed() bool {
	return r.Err != ""
}

// GetTransaction fetches a landed transaction with its logs.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionReport, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid transaction signature %s", signature)
	}
	maxVersion := uint64(0)
	res, err := c.Client.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
		Commitment:                     solanarpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch transaction %s", signature)
	}
	report := &TransactionReport{Signature: signature, Slot: res.Slot}
	if res.Meta != nil {
		report.Fee = res.Meta.Fee
		report.Logs = res.Meta.LogMessages
		if res.Meta.Err != nil {
			raw, err := json.Marshal(res.Meta.Err)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			report.Err = string(raw)
		}
	}
	return report, nil
}

// CheckVersion fails when the node reports a version below MinClusterVersion.
func (c *Client) CheckVersion(ctx context.Context) (*version.Version, error) {
	res, err := c.GetVersion(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cluster version")
	}
	return checkVersion(res.SolanaCore)
}

func checkVersion(core string) (*version.Version, error) {
	v, err := version.NewVersion(core)
	if err != nil {
		return nil, errors.Wrapf(err, "unparsable cluster version %q", core)
	}
	minVersion := version.Must(version.NewVersion(MinClusterVersion))
	if v.LessThan(minVersion) {
		return v, errors.Wrapf(ErrUnsupportedCluster, "%s is older than %s", v, minVersion)
	}
	log.Debug().Str("version", v.String()).Msg("cluster version")
	return v, nil
}
