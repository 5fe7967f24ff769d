package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"autodeposit.backend/internal/domain/entities"
	"autodeposit.backend/internal/paylink"
)

var (
	stdout   io.Writer = os.Stdout
	fatalfFn           = log.Fatalf
)

type options struct {
	bank     string
	amount   string
	baseHash string
	codec    string
	template string
	decode   string
	asJSON   bool
}

func parseOptions(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("paylink", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.bank, "bank", "", "bank identifier, e.g. bakai")
	fs.StringVar(&o.amount, "amount", "", "amount with up to two decimals")
	fs.StringVar(&o.baseHash, "base-hash", os.Getenv("PAYLINK_BASE_HASH"), "bank base hash")
	fs.StringVar(&o.codec, "codec", "", "override codec: tagged, elqr or generic")
	fs.StringVar(&o.template, "template", "https://pay.example/{hash}", "URL template with one {hash}")
	fs.StringVar(&o.decode, "decode", "", "decode this hash instead of building a link")
	fs.BoolVar(&o.asJSON, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.bank == "" {
		return o, errors.New("-bank is required")
	}
	if o.decode == "" && o.amount == "" {
		return o, errors.New("-amount is required")
	}
	return o, nil
}

func newBuilder(o options) (*paylink.Builder, error) {
	registry, failed := paylink.NewRegistry([]*entities.BankConfig{{
		Bank:        o.bank,
		Codec:       o.codec,
		URLTemplate: o.template,
		Enabled:     true,
	}}, nil)
	if err := failed[o.bank]; err != nil {
		return nil, err
	}
	return paylink.NewBuilder(registry), nil
}

func run(args []string, out io.Writer) error {
	o, err := parseOptions(args)
	if err != nil {
		return err
	}
	builder, err := newBuilder(o)
	if err != nil {
		return err
	}

	if o.decode != "" {
		amount, ok := builder.DecodeHash(o.bank, o.decode)
		if !ok {
			return fmt.Errorf("hash cannot be decoded for bank %s", o.bank)
		}
		fmt.Fprintf(out, "Amount: %s\n", amount)
		return nil
	}

	amount, err := entities.ParseMoney(o.amount)
	if err != nil {
		return err
	}
	link, err := builder.Build(o.bank, amount, o.baseHash)
	if err != nil {
		return err
	}
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(link)
	}
	fmt.Fprintf(out, "URL:   %s\n", link.URL)
	fmt.Fprintf(out, "Hash:  %s\n", link.Hash)
	fmt.Fprintf(out, "Codec: %s (invertible=%t fallback=%t)\n", link.Codec, link.Invertible, link.Fallback)
	return nil
}

func main() {
	if err := run(os.Args[1:], stdout); err != nil {
		fatalfFn("paylink: %v", err)
	}
}
