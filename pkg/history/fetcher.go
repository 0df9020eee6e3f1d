package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nextofkin/nok-wallet/internal/httpclient"
	klog "github.com/nextofkin/nok-wallet/internal/log"
)

// Source returns transfers involving an address.
type Source interface {
	// Sent returns transfers whose sender is publicKey.
	Sent(ctx context.Context, publicKey string) ([]Transaction, error)
	// Received returns transfers whose recipient is publicKey.
	Received(ctx context.Context, publicKey string) ([]Transaction, error)
}

// APIError is returned when the explorer reports a failed query.
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result != "" {
		return fmt.Sprintf("explorer error: %s: %s", e.Message, e.Result)
	}
	return "explorer error: " + e.Message
}

// Fetcher queries the explorer's logs API. Each call issues one request.
type Fetcher struct {
	client   *httpclient.Client
	contract string
	log      zerolog.Logger
}

// NewFetcher creates a fetcher for transfers of the token at contract.
func NewFetcher(explorerURL, contract string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:   httpclient.NewWithTimeout(explorerURL, timeout),
		contract: strings.ToLower(contract),
		log:      klog.History,
	}
}

// Sent returns transfers sent by publicKey.
func (f *Fetcher) Sent(ctx context.Context, publicKey string) ([]Transaction, error) {
	q := f.baseQuery()
	q.Set("topic1", PadTopic(publicKey))
	return f.query(ctx, q)
}

// Received returns transfers received by publicKey.
func (f *Fetcher) Received(ctx context.Context, publicKey string) ([]Transaction, error) {
	q := f.baseQuery()
	q.Set("topic0_2_opr", "and")
	q.Set("topic2", PadTopic(publicKey))
	return f.query(ctx, q)
}

func (f *Fetcher) baseQuery() url.Values {
	return url.Values{
		"module":    {"logs"},
		"action":    {"getLogs"},
		"fromBlock": {"0"},
		"toBlock":   {"latest"},
		"address":   {f.contract},
		"topic0":    {TransferTopic},
	}
}

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (f *Fetcher) query(ctx context.Context, q url.Values) ([]Transaction, error) {
	var resp apiResponse
	if err := f.client.GetJSON(ctx, "/api", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}

	if resp.Status == "0" {
		if strings.HasPrefix(resp.Message, "No records found") {
			return []Transaction{}, nil
		}
		// result is usually a message string; keep raw JSON otherwise.
		detail := string(resp.Result)
		var msg string
		if err := json.Unmarshal(resp.Result, &msg); err == nil {
			detail = msg
		}
		return nil, &APIError{Message: resp.Message, Result: detail}
	}

	txs, err := parseLogs(resp.Result)
	if err != nil {
		return nil, err
	}
	f.log.Debug().Int("count", len(txs)).Msg("Fetched transfer logs")
	return txs, nil
}

// All returns sent and received transfers, oldest first. A transfer to
// oneself appears once.
func All(ctx context.Context, src Source, publicKey string) ([]Transaction, error) {
	var sent, received []Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sent, err = src.Sent(gctx, publicKey)
		return err
	})
	g.Go(func() error {
		var err error
		received, err = src.Received(gctx, publicKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type logID struct {
		hash  string
		index uint64
	}
	seen := make(map[logID]struct{}, len(sent)+len(received))
	out := make([]Transaction, 0, len(sent)+len(received))
	for _, batch := range [][]Transaction{sent, received} {
		for _, tx := range batch {
			id := logID{tx.TxHash, tx.LogIndex}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}
