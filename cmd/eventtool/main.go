package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"eventstream/internal/config"
	"eventstream/internal/extraction"
	"eventstream/internal/models"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

const usage = `Usage: eventtool <command> <arg>

Commands:
  id <event-id>        Decode an event id into its ledger position
  contract <C...|hex>  Convert a contract address to hex or back
  scval <base64>       Print a base64 XDR ScVal
  filters <file>       Validate a filter file
`

var errUsage = errors.New("invalid usage")

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if err := run(flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}

	switch args[0] {
	case "id":
		return decodeID(args[1], out)
	case "contract":
		return convertContract(args[1], out)
	case "scval":
		return printScVal(args[1], out)
	case "filters":
		return checkFilters(args[1], out)
	default:
		return errUsage
	}
}

func decodeID(id string, out io.Writer) error {
	pos, err := models.ParseEventID(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "ledger: %d\ntx: %d\nop: %d\nevent: %d\n", pos.Ledger, pos.Tx, pos.Op, pos.Event)
	return nil
}

func convertContract(value string, out io.Writer) error {
	// Decode contract strkey (starts with C)
	if strings.HasPrefix(value, "C") {
		raw, err := strkey.Decode(strkey.VersionByteContract, value)
		if err != nil {
			return fmt.Errorf("decoding strkey: %w", err)
		}
		fmt.Fprintln(out, hex.EncodeToString(raw))
		return nil
	}

	raw, err := hex.DecodeString(value)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("%q is neither a contract address nor 32 hex encoded bytes", value)
	}
	address, err := strkey.Encode(strkey.VersionByteContract, raw)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, address)
	return nil
}

func printScVal(encoded string, out io.Writer) error {
	var val xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(encoded, &val); err != nil {
		return fmt.Errorf("decoding ScVal: %w", err)
	}
	fmt.Fprintf(out, "%s: %s\n", val.Type.String(), extraction.ScValToString(val))
	return nil
}

func checkFilters(path string, out io.Writer) error {
	filters, err := config.LoadFilters(path)
	if err != nil {
		return err
	}

	for i, f := range filters {
		eventType, ok := f.Type()
		if !ok {
			eventType = "any"
		}
		fmt.Fprintf(out, "filter %d: type=%s contracts=%d\n", i, eventType, len(f.ContractIDs()))
		for _, tf := range f.Topics() {
			fmt.Fprintf(out, "  topics %s\n", tf)
		}
	}
	fmt.Fprintf(out, "%d filters ok\n", len(filters))
	return nil
}
