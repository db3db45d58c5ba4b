package cli

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/digitorus/pdfstamp"
	"github.com/digitorus/pdfstamp/images"
	"github.com/digitorus/pdfstamp/integrity"
)

type stampOptions struct {
	x, y, width, height float64
	page                int
	producer            string
	noCompress          bool
}

// stampOutput is printed after a successful stamp.
type stampOutput struct {
	Output       string     `json:"output"`
	Page         int        `json:"page"`
	Box          [4]float64 `json:"box"`
	Draw         [4]float64 `json:"draw"`
	OriginalHash string     `json:"originalHash"`
	FinalHash    string     `json:"finalHash"`
	Warnings     []string   `json:"warnings,omitempty"`
}

func newStampCommand() *cobra.Command {
	opts := &stampOptions{}
	cmd := &cobra.Command{
		Use:   "stamp [options] <input.pdf> <output.pdf> <signature-image>",
		Short: "Stamp a signature image onto a PDF file",
		Example: `  pdfstamp stamp --x 0.1 --y 0.1 --width 0.3 --height 0.1 in.pdf out.pdf sig.png
  pdfstamp stamp --page 2 in.pdf out.pdf sig.b64`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := stampPDF(args[0], args[1], args[2], opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.x, "x", 0.1, "Left edge as a fraction of the page width")
	f.Float64Var(&opts.y, "y", 0.1, "Top edge as a fraction of the page height, measured from the top")
	f.Float64Var(&opts.width, "width", 0.3, "Width as a fraction of the page width")
	f.Float64Var(&opts.height, "height", 0.1, "Height as a fraction of the page height")
	f.IntVar(&opts.page, "page", 1, "1-based page number")
	f.StringVar(&opts.producer, "producer", "pdfstamp", "Producer written to the document information")
	f.BoolVar(&opts.noCompress, "no-compress", false, "Write uncompressed image and content streams")
	return cmd
}

// readSignature loads an image file, or base64 text (optionally a data URL)
// when the file is not an image.
func readSignature(path string) (*images.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := images.New(path, data)
	if err == nil {
		return img, nil
	}
	if b64, berr := images.FromBase64(path, string(bytes.TrimSpace(data))); berr == nil {
		return b64, nil
	}
	return nil, err
}

// stampPDF stamps the signature at sigPath onto input and writes output.
func stampPDF(input, output, sigPath string, opts *stampOptions) (*stampOutput, error) {
	sig, err := readSignature(sigPath)
	if err != nil {
		return nil, err
	}

	original, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	doc, err := pdfstamp.OpenBytes(original)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", input, err)
	}
	doc.SetProducer(opts.producer)
	if opts.noCompress {
		doc.SetCompression(zlib.NoCompression)
	}
	doc.Stamp(sig).Relative(opts.x, opts.y, opts.width, opts.height).Page(opts.page)

	var buf bytes.Buffer
	result, err := doc.Write(&buf)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	s := result.Stamps[0]
	return &stampOutput{
		Output:       output,
		Page:         s.Page,
		Box:          s.Box.Rect(),
		Draw:         s.Draw.Rect(),
		OriginalHash: integrity.Hash(original),
		FinalHash:    integrity.Hash(buf.Bytes()),
		Warnings:     result.Warnings(),
	}, nil
}
