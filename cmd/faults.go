// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/casement/pkg/casement"
)

var (
	faultsFormat string
	faultsOutput string
)

var faultsCmd = &cobra.Command{
	Use:   "faults",
	Short: "Read out and clear the fault log",
	Long: `Send DETECT_FAULTS and collect the fault codes the control node streams.

The read-out is destructive: once the stream completes the control node
marks the codes as read and clears its session flags, so the same fault
can be logged again.

Output formats:
  text  one line per code (default)
  cbor  a single CBOR record with the read time and the codes`,
	RunE: runFaults,
}

func init() {
	faultsCmd.Flags().StringVar(&faultsFormat, "format", "text", "Output format: text or cbor")
	faultsCmd.Flags().StringVarP(&faultsOutput, "output", "o", "", "Write to this file instead of stdout")
	rootCmd.AddCommand(faultsCmd)
}

// faultReport is the CBOR export of one read-out
type faultReport struct {
	ReadAt int64    `cbor:"1,keyasint"` // unix milliseconds
	Codes  []uint8  `cbor:"2,keyasint"`
	DTC    []string `cbor:"3,keyasint"`
}

func newFaultReport(codes []casement.FaultCode, at time.Time) faultReport {
	r := faultReport{
		ReadAt: at.UnixMilli(),
		Codes:  make([]uint8, len(codes)),
		DTC:    make([]string, len(codes)),
	}
	for i, c := range codes {
		r.Codes[i] = uint8(c)
		r.DTC[i] = c.DTC()
	}
	return r
}

func writeFaults(w io.Writer, format string, codes []casement.FaultCode, at time.Time) error {
	switch format {
	case "text":
		_, err := io.WriteString(w, casement.FormatFaults(codes))
		return err
	case "cbor":
		data, err := cbor.Marshal(newFaultReport(codes, at))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format %q (use text or cbor)", format)
}

func runFaults(cmd *cobra.Command, args []string) error {
	if faultsFormat != "text" && faultsFormat != "cbor" {
		return fmt.Errorf("unknown format %q (use text or cbor)", faultsFormat)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	link, connInfo, closeLink, err := openLink(cfg, nil)
	if err != nil {
		return err
	}
	defer closeLink()

	codes, err := casement.NewRequester(link).RequestFaults()
	if err != nil {
		return fmt.Errorf("read faults: %w", err)
	}

	var w io.Writer = os.Stdout
	if faultsOutput != "" {
		f, err := os.Create(faultsOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if faultsFormat == "text" {
		fmt.Fprintf(w, "Faults from %s\n", connInfo)
	}
	return writeFaults(w, faultsFormat, codes, time.Now())
}
