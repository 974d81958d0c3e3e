package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/osm-address-etl/internal/adapter/osmxml"
)

var (
	sampleEvery int
	sampleOut   string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write every k-th node and way to a smaller OSM document",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource()
		if err != nil {
			return err
		}
		defer src.Close()

		reader, err := osmxml.NewReader(src)
		if err != nil {
			return err
		}

		out, err := os.Create(sampleOut)
		if err != nil {
			return fmt.Errorf("create sample: %w", err)
		}
		w, err := osmxml.NewWriter(out)
		if err != nil {
			out.Close()
			return err
		}

		n, err := osmxml.Sample(cmd.Context(), reader, w, sampleEvery)
		if err != nil {
			out.Close()
			return err
		}
		if err := errors.Join(w.Close(), out.Close()); err != nil {
			return err
		}

		logger.Info("sample written", "path", sampleOut, "elements", n, "every", sampleEvery)
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d elements to %s\n", n, sampleOut)
		return nil
	},
}

func init() {
	sampleCmd.Flags().IntVarP(&sampleEvery, "every", "k", 10, "keep every k-th element")
	sampleCmd.Flags().StringVarP(&sampleOut, "out", "o", "sample.osm", "path of the sample document")
	rootCmd.AddCommand(sampleCmd)
}
