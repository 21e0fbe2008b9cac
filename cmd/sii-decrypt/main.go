// Command sii-decrypt unwraps an encrypted or compressed SII save file
// and writes the inner payload. The output is either the BSII binary
// form or plain text, depending on what the container held.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/calzoneman/siirs/sii"
)

func main() {
	var inPath string
	var outPath string
	var lenient bool
	var toText bool
	flag.StringVar(&inPath, "in", "", "input .sii file")
	flag.StringVar(&outPath, "out", "", "output file (default stdout)")
	flag.BoolVar(&lenient, "lenient", false, "skip structures with unknown field types")
	flag.BoolVar(&toText, "text", false, "decode binary payloads and print a unit summary")
	flag.Parse()
	log.SetFlags(0)
	if inPath == "" {
		log.Fatal("-in is required")
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatalf("read: %v", err)
	}

	payload, format, err := sii.Unwrap(data)
	if err != nil {
		log.Fatalf("unwrap: %v", err)
	}
	log.Printf("container: %s, %d bytes", format, len(payload))

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("create: %v", err)
		}
		defer f.Close()
		out = f
	}

	if !toText || format == sii.FormatText {
		if _, err := out.Write(payload); err != nil {
			log.Fatalf("write: %v", err)
		}
		return
	}

	var opts []sii.DecodeOption
	if lenient {
		opts = append(opts, sii.WithLenientMode())
	}
	doc, err := sii.Decode(payload, opts...)
	if err != nil {
		log.Fatalf("decode: %v", err)
	}
	for _, in := range doc.Instances {
		fmt.Fprintf(out, "%s : %s {\n", in.Name, in.ID.String())
		def := doc.Definitions[in.DefID]
		for _, fd := range def.Fields {
			fmt.Fprintf(out, " %s: %v\n", fd.Name, in.Fields[fd.Name])
		}
		fmt.Fprintln(out, "}")
	}
	if len(doc.Skipped) > 0 {
		log.Printf("skipped %d instances with undecodable layouts", len(doc.Skipped))
	}
}
