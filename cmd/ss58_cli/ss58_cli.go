package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pierreaubert/dotaddr/dix"
	"github.com/pierreaubert/dotaddr/ss58"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("ss58_cli", flag.ContinueOnError)
	address := fs.String("address", "", "an SS58 address to decode")
	asHex := fs.Bool("hex", true, "print the public key as 0x hex, otherwise as raw bytes")
	verbose := fs.Bool("v", false, "print prefix, network and checksum")
	pubkey := fs.String("pubkey", "", "a 32 byte hex public key to encode")
	network := fs.String("network", "", "network name used by -pubkey (polkadot, kusama, ...)")
	networkID := fs.Int("prefix", -1, "network id used by -pubkey when -network is not set")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *address != "" && *pubkey != "":
		return fmt.Errorf("use either -address or -pubkey")
	case *address != "":
		return decode(out, *address, *asHex, *verbose)
	case *pubkey != "":
		return encode(out, *pubkey, *network, *networkID)
	}
	return fmt.Errorf("please provide an address or a public key")
}

func decode(out io.Writer, address string, asHex, verbose bool) error {
	d, err := ss58.Decode(address)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(out, "Address:  %s\n", address)
		fmt.Fprintf(out, "Prefix:   %s\n", d.Prefix)
		if d.Prefix.Reserved() {
			fmt.Fprintf(out, "Network:  %s\n", dix.PrefixName(d.Prefix))
		} else {
			fmt.Fprintf(out, "Network:  %s (%d)\n", dix.PrefixName(d.Prefix), d.Prefix.NetworkID())
		}
		fmt.Fprintf(out, "Checksum: %x\n", d.Checksum[:])
	}

	if asHex {
		fmt.Fprintln(out, d.PublicKey.Hex())
		return nil
	}
	_, err = out.Write(d.PublicKey[:])
	return err
}

func encode(out io.Writer, pubkey, network string, networkID int) error {
	key, err := dix.ParsePublicKey(pubkey)
	if err != nil {
		return err
	}
	prefix, err := dix.ResolvePrefix(network, networkID)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, ss58.EncodeKey(key, prefix))
	return nil
}
