// Command scs-extract pulls files out of a hash-indexed .scs archive.
// Entries are addressed either by their in-game path or by a raw hex
// hash, since the archive index stores only hashes.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/calzoneman/siirs/scs"
)

func main() {
	var inPath string
	var outDir string
	var verify bool
	flag.StringVar(&inPath, "in", "", "input .scs archive")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.BoolVar(&verify, "verify", false, "verify entry checksums while extracting")
	flag.Parse()
	log.SetFlags(0)
	if inPath == "" {
		log.Fatal("-in is required")
	}
	if flag.NArg() == 0 {
		log.Fatal("no paths given; pass in-game paths or 0x-prefixed hashes")
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	var opts []scs.Option
	if verify {
		opts = append(opts, scs.WithChecksumVerification())
	}
	ar, err := scs.Open(data, opts...)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	log.Printf("archive version %d, %d entries", ar.Version(), ar.Len())

	hashes := make([]uint64, 0, flag.NArg())
	names := make(map[uint64]string, flag.NArg())
	for _, arg := range flag.Args() {
		var h uint64
		if strings.HasPrefix(arg, "0x") {
			h, err = strconv.ParseUint(arg[2:], 16, 64)
			if err != nil {
				log.Fatalf("bad hash %q: %v", arg, err)
			}
			names[h] = arg[2:]
		} else {
			h = scs.PathHash(arg)
			names[h] = strings.TrimPrefix(arg, "/")
		}
		hashes = append(hashes, h)
	}

	files, err := ar.ExtractAll(hashes)
	if err != nil {
		log.Fatalf("extract: %v", err)
	}
	for h, content := range files {
		dest := filepath.Join(outDir, filepath.FromSlash(names[h]))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			log.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			log.Fatalf("write: %v", err)
		}
		log.Printf("%s (%d bytes)", dest, len(content))
	}
}
