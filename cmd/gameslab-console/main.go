// Host-side console for the Gameslab SMC
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command gameslab-console attaches to the CDC ACM serial port exposed by
// the SMC and bridges it to the terminal, providing the Zynq console.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/tarm/serial"
)

func main() {
	port := flag.String("port", "/dev/ttyACM0", "CDC ACM serial port")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	log.SetFlags(0)

	s, err := serial.OpenPort(&serial.Config{Name: *port, Baud: *baud})

	if err != nil {
		log.Fatalf("gameslab-console: %v", err)
	}

	defer s.Close()

	go func() {
		if _, err := io.Copy(os.Stdout, s); err != nil {
			log.Fatalf("gameslab-console: read: %v", err)
		}

		os.Exit(0)
	}()

	if _, err := io.Copy(s, os.Stdin); err != nil {
		log.Fatalf("gameslab-console: write: %v", err)
	}
}
