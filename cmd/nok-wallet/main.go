// nok-wallet is a command-line wallet for a single Kin account.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/nextofkin/nok-wallet/config"
	klog "github.com/nextofkin/nok-wallet/internal/log"
	"github.com/nextofkin/nok-wallet/pkg/history"
	"github.com/nextofkin/nok-wallet/pkg/kin"
	"github.com/nextofkin/nok-wallet/pkg/wallet"
)

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if flags.Help {
			return
		}
		os.Exit(1)
	}

	if err := config.EnsureDataDirs(cfg); err != nil {
		fatal("create data dirs: %v", err)
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]
	if cmd == "help" {
		usage()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := wallet.Open(cfg)
	if err != nil {
		fatal("open wallet: %v", err)
	}
	atExit = append(atExit, func() { w.Close() })
	defer w.Close()

	klog.CLI.Debug().
		Str("network", string(cfg.Network)).
		Str("provider", cfg.Provider.URL).
		Str("command", cmd).
		Msg("Wallet opened")

	switch cmd {
	case "address":
		cmdAddress(ctx, w)
	case "balance":
		cmdBalance(ctx, w, cmdArgs)
	case "pending":
		cmdBalance(ctx, w, append([]string{"--pending"}, cmdArgs...))
	case "available":
		cmdAvailable(ctx, w, cmdArgs)
	case "send":
		cmdSend(ctx, w, cmdArgs)
	case "export":
		cmdExport(ctx, w, cmdArgs)
	case "clear":
		cmdClear(ctx, w, cmdArgs)
	case "history":
		cmdHistory(ctx, w, cmdArgs)
	case "faucet":
		cmdFaucet(ctx, w)
	default:
		usage()
		fatal("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: nok-wallet [global flags] <command> [flags]

Global flags:
  --network <net>       mainnet, ropsten (default) or truffle
  --datadir <path>      Data directory (default: ~/.nok)
  --config, -c <path>   Config file (default: <datadir>/nok.conf)
  --rpc <url>           Ethereum node URL
  --token <addr>        Kin token contract address
  --light-keystore      Use light scrypt parameters (development only)
  --store <backend>     Passkey store: badger (default) or memory
  --explorer <url>      Block explorer API base URL
  --faucet <url>        Test-token faucet URL
  --log-level <lvl>     debug, info, warn or error
  --log-file <path>     Also write JSON logs to a file
  --log-json            Log JSON to stderr

Commands:
  address                         Show the wallet address (creates the account)
  balance [--pending] [--base]    Show the Kin balance
  pending [--base]                Show the balance including pending transfers
  available [--watch]             Report whether an account exists
  send --to <addr> --amount <n> [--base]
                                  Send Kin from the existing account
  export [--out <file>]           Export the keystore under a new passphrase
  clear [--yes]                   Delete the local keystore
  history [--all] [--json]        Show transfers (sent; --all adds received)
  faucet                          Request test Kin (test networks only)

Environment variables use the NOK_ prefix, e.g. NOK_PROVIDER_URL.
`)
}

// ── address ─────────────────────────────────────────────────────────────

func cmdAddress(ctx context.Context, w *wallet.Controller) {
	addr, err := w.GetPublicAddress(ctx)
	if err != nil {
		fatal("address: %v", err)
	}
	fmt.Println(addr)
}

// ── balance ─────────────────────────────────────────────────────────────

func cmdBalance(ctx context.Context, w *wallet.Controller, args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	pending := fs.Bool("pending", false, "Include pending transfers")
	base := fs.Bool("base", false, "Print base units instead of Kin")
	fs.Parse(args)

	get := w.GetBalance
	if *pending {
		get = w.GetPendingBalance
	}
	bal, err := get(ctx)
	if err != nil {
		fatal("balance: %v", err)
	}
	if *base {
		fmt.Println(bal.String())
		return
	}
	fmt.Printf("%s KIN\n", kin.FromBase(bal))
}

// ── available ───────────────────────────────────────────────────────────

func cmdAvailable(ctx context.Context, w *wallet.Controller, args []string) {
	fs := flag.NewFlagSet("available", flag.ExitOnError)
	watch := fs.Bool("watch", false, "Keep printing changes until interrupted")
	fs.Parse(args)

	if !*watch {
		ok, err := w.HasWallet(ctx)
		if err != nil {
			fatal("available: %v", err)
		}
		fmt.Println(ok)
		return
	}

	for avail := range w.IsWalletAvailable(ctx) {
		fmt.Printf("%s available=%v\n", time.Now().Format("15:04:05"), avail)
	}
}

// ── send ────────────────────────────────────────────────────────────────

func cmdSend(ctx context.Context, w *wallet.Controller, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount to send (e.g. 1.5)")
	base := fs.Bool("base", false, "Amount is in base units")
	fs.Parse(args)

	if *to == "" || *amountStr == "" {
		fatal("Usage: nok-wallet send --to <addr> --amount <amt>")
	}

	amount, err := kin.ToBase(*amountStr)
	if *base {
		amount, err = parseBaseUnits(*amountStr)
	}
	if err != nil {
		fatal("invalid amount: %v", err)
	}

	txID, err := w.SendKin(ctx, *to, amount)
	if errors.Is(err, wallet.ErrWalletUnavailable) {
		fatal("no account yet; run 'nok-wallet address' to create one")
	}
	if err != nil {
		fatal("send: %v", err)
	}
	fmt.Printf("Submitted: %s\n", txID)
}

// ── export ──────────────────────────────────────────────────────────────

func cmdExport(ctx context.Context, w *wallet.Controller, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "Write the keystore JSON to this file")
	fs.Parse(args)

	pass, err := readPassword("Export passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	confirm, err := readPassword("Confirm passphrase: ")
	if err != nil {
		fatal("read passphrase: %v", err)
	}
	if string(pass) != string(confirm) {
		fatal("passphrases do not match")
	}
	if len(pass) == 0 {
		fatal("passphrase must not be empty")
	}

	keyJSON, err := w.ExportKeyStore(ctx, string(pass))
	if err != nil {
		fatal("export: %v", err)
	}
	if *out == "" {
		fmt.Println(keyJSON)
		return
	}
	if err := os.WriteFile(*out, []byte(keyJSON), 0600); err != nil {
		fatal("write %s: %v", *out, err)
	}
	fmt.Printf("Keystore written to %s\n", *out)
}

// ── clear ───────────────────────────────────────────────────────────────

func cmdClear(ctx context.Context, w *wallet.Controller, args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	fs.Parse(args)

	if !*yes {
		fmt.Fprint(os.Stderr, "This deletes the local key. Export it first if it holds funds. Continue? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}
	if err := w.ClearWallet(ctx); err != nil {
		fatal("clear: %v", err)
	}
	fmt.Println("Keystore deleted.")
}

// ── history ─────────────────────────────────────────────────────────────

func cmdHistory(ctx context.Context, w *wallet.Controller, args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	all := fs.Bool("all", false, "Include received transfers")
	asJSON := fs.Bool("json", false, "Print JSON")
	fs.Parse(args)

	var (
		txs []history.Transaction
		err error
	)
	if *all {
		txs, err = w.FullHistory(ctx)
	} else {
		txs, err = w.TransactionHistory(ctx)
	}
	if err != nil {
		fatal("history: %v", err)
	}

	if *asJSON {
		data, err := json.MarshalIndent(txs, "", "  ")
		if err != nil {
			fatal("encode: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	if len(txs) == 0 {
		fmt.Println("No transfers.")
		return
	}
	for _, tx := range txs {
		fmt.Printf("%s  block %-9d %s -> %s  %s KIN  %s\n",
			tx.Timestamp.Format("2006-01-02 15:04:05"),
			tx.BlockNumber,
			tx.From, tx.To,
			kin.FromBase(tx.Value),
			tx.TxHash)
	}
}

// ── faucet ──────────────────────────────────────────────────────────────

func cmdFaucet(ctx context.Context, w *wallet.Controller) {
	if err := w.RequestTestTokens(ctx); err != nil {
		fatal("faucet: %v", err)
	}
	fmt.Println("Test tokens requested. They arrive once the faucet transfer is mined.")
}

// ── Helpers ─────────────────────────────────────────────────────────────

func parseBaseUnits(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", s)
	}
	return v, nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// atExit runs in reverse order before fatal exits.
var atExit []func()

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	runAtExit()
	os.Exit(1)
}

func runAtExit() {
	for i := len(atExit) - 1; i >= 0; i-- {
		atExit[i]()
	}
	atExit = nil
}
