// Package history fetches token transfer history from an Etherscan-style
// block explorer.
package history

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransferTopic is the ERC-20 Transfer(address,address,uint256) event id.
const TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// Transaction is one token transfer log entry.
type Transaction struct {
	Address     string // token contract
	From        string
	To          string
	Timestamp   time.Time
	Value       *big.Int // base units; do not modify
	RawData     string
	TxHash      string
	BlockNumber uint64
	LogIndex    uint64
}

// logEntry is one element of a getLogs result.
type logEntry struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TimeStamp       string   `json:"timeStamp"`
	LogIndex        string   `json:"logIndex"`
	TransactionHash string   `json:"transactionHash"`
}

// PadTopic left-pads a hex address to a 32-byte log topic. Longer input
// keeps its last 64 hex digits.
func PadTopic(publicKey string) string {
	key := strings.TrimPrefix(strings.TrimPrefix(publicKey, "0x"), "0X")
	if len(key) > 64 {
		key = key[len(key)-64:]
	}
	return "0x" + strings.Repeat("0", 64-len(key)) + strings.ToLower(key)
}

func parseHexUint(field, s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return v, nil
}

func topicAddress(topic string) string {
	return common.HexToAddress(topic).Hex()
}

func (e *logEntry) transaction() (Transaction, error) {
	if len(e.Topics) < 3 {
		return Transaction{}, fmt.Errorf("log %s has %d topics, want 3", e.TransactionHash, len(e.Topics))
	}
	ts, err := parseHexUint("timeStamp", e.TimeStamp)
	if err != nil {
		return Transaction{}, err
	}
	block, err := parseHexUint("blockNumber", e.BlockNumber)
	if err != nil {
		return Transaction{}, err
	}
	logIndex, err := parseHexUint("logIndex", e.LogIndex)
	if err != nil {
		return Transaction{}, err
	}

	return Transaction{
		Address:     e.Address,
		From:        topicAddress(e.Topics[1]),
		To:          topicAddress(e.Topics[2]),
		Timestamp:   time.Unix(int64(ts), 0).UTC(),
		Value:       new(big.Int).SetBytes(common.FromHex(e.Data)),
		RawData:     e.Data,
		TxHash:      e.TransactionHash,
		BlockNumber: block,
		LogIndex:    logIndex,
	}, nil
}

// parseLogs decodes a getLogs result array.
func parseLogs(raw json.RawMessage) ([]Transaction, error) {
	var entries []logEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	txs := make([]Transaction, 0, len(entries))
	for i := range entries {
		tx, err := entries[i].transaction()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
