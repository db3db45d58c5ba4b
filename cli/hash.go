package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/digitorus/pdfstamp/integrity"
)

// errMismatch is returned by verify when a file does not match its hash.
var errMismatch = errors.New("hash mismatch")

func newHashCommand() *cobra.Command {
	var algorithm string
	cmd := &cobra.Command{
		Use:   "hash [--algorithm name] <file>...",
		Short: "Print content digests of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recorder(algorithm)
			if err != nil {
				return err
			}
			for _, name := range args {
				digest, err := hashFile(rec, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", digest, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(integrity.SHA256), "Digest algorithm (sha256, sha3-256, blake2b-256)")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var algorithm string
	cmd := &cobra.Command{
		Use:   "verify [--algorithm name] <file> <expected-hash>",
		Short: "Check a signed document against the hash in its audit record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recorder(algorithm)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			ok, err := rec.Verify(f, args[1])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: MISMATCH\n", args[0])
				return fmt.Errorf("%s: %w", args[0], errMismatch)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(integrity.SHA256), "Digest algorithm (sha256, sha3-256, blake2b-256)")
	return cmd
}

func recorder(algorithm string) (*integrity.Recorder, error) {
	a, err := integrity.ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	return integrity.NewRecorder(integrity.WithAlgorithm(a)), nil
}

func hashFile(rec *integrity.Recorder, name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return rec.HashReader(f)
}
