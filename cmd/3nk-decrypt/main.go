// Command 3nk-decrypt strips or applies the 3nK obfuscation layer used
// by the game's locale files.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/calzoneman/siirs/threenk"
)

func main() {
	var inPath string
	var outPath string
	var encode bool
	var seed uint
	flag.StringVar(&inPath, "in", "", "input file")
	flag.StringVar(&outPath, "out", "", "output file (default stdout)")
	flag.BoolVar(&encode, "encode", false, "wrap plain input instead of unwrapping")
	flag.UintVar(&seed, "seed", 0, "key seed byte used with -encode")
	flag.Parse()
	log.SetFlags(0)
	if inPath == "" {
		log.Fatal("-in is required")
	}
	if seed > 0xFF {
		log.Fatal("-seed must fit in one byte")
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatalf("read: %v", err)
	}

	var out []byte
	if encode {
		out = threenk.Encode(data, byte(seed))
	} else {
		out, err = threenk.Decode(data)
		if err != nil {
			log.Fatalf("decode: %v", err)
		}
	}

	if outPath == "" {
		if _, err := os.Stdout.Write(out); err != nil {
			log.Fatalf("write: %v", err)
		}
		return
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		log.Fatalf("write: %v", err)
	}
}
