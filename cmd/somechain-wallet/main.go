package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/somechain-network/node/consensus"
	"github.com/somechain-network/node/wallet"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: somechain-wallet <generate|address|send> ...")
		return 2
	}
	switch args[0] {
	case "-version", "--version", "version":
		fmt.Fprintln(stdout, version)
		return 0
	case "generate":
		return runGenerate(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "send":
		return runSend(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		return 2
	}
}

func runGenerate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("wallet", "wallet.json", "path to write the new wallet file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	w, err := wallet.Generate()
	if err != nil {
		fmt.Fprintf(stderr, "generate: %v\n", err)
		return 1
	}
	if err := w.Save(*path); err != nil {
		fmt.Fprintf(stderr, "save: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "wallet: %s\n", *path)
	fmt.Fprintf(stdout, "address: %s\n", w.Address())
	fmt.Fprintf(stdout, "display_address: %s\n", w.DisplayAddress())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("wallet", "wallet.json", "path to the wallet file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	w, err := wallet.Load(*path)
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "address: %s\n", w.Address())
	fmt.Fprintf(stdout, "display_address: %s\n", w.DisplayAddress())
	return 0
}

// runSend builds and signs a transaction spending a single named UTXO and
// paying one recipient, printing the canonical hex encoding for the caller
// to submit via the node's /newtransaction endpoint.
func runSend(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("wallet", "wallet.json", "path to the wallet file")
	spendTxid := fs.String("spend-txid", "", "txid of the output being spent")
	spendVout := fs.Int("spend-vout", 0, "vout index of the output being spent")
	spentAmount := fs.Uint64("spent-amount", 0, "amount of the output being spent")
	to := fs.String("to", "", "recipient address (hex public key)")
	amount := fs.Uint64("amount", 0, "amount to send")
	fee := fs.Uint64("fee", 0, "transaction fee")
	changeAddress := fs.String("change-address", "", "address for the change output; defaults to the wallet's own address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *spendTxid == "" || *to == "" {
		fmt.Fprintln(stderr, "send: --spend-txid and --to are required")
		return 2
	}

	w, err := wallet.Load(*path)
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}

	change := *changeAddress
	if change == "" {
		change = w.Address()
	}
	if *amount+*fee > *spentAmount {
		fmt.Fprintln(stderr, "send: amount+fee exceeds spent output's amount")
		return 2
	}
	changeAmount := *spentAmount - *amount - *fee

	outputs := map[int]consensus.TxOut{
		0: {Amount: *amount, Address: *to},
	}
	if changeAmount > 0 {
		outputs[1] = consensus.TxOut{Amount: changeAmount, Address: change}
	}

	req := wallet.SpendRequest{
		Spend:    consensus.SingleOutput{Txid: consensus.Hash(*spendTxid), Vout: *spendVout},
		Spent:    consensus.TxOut{Amount: *spentAmount},
		Outputs:  outputs,
		Fees:     *fee,
		Locktime: time.Now().Unix(),
	}
	tx, err := w.BuildAndSign(req)
	if err != nil {
		fmt.Fprintf(stderr, "sign: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "txid: %s\n", consensus.TxID(tx))
	fmt.Fprintf(stdout, "transaction_hex: %s\n", hex.EncodeToString(consensus.CanonicalTransaction(tx)))
	return 0
}
