package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/digitorus/pdfstamp"
	ipdf "github.com/digitorus/pdfstamp/internal/pdf"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "List page sizes and embedded images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := pdfstamp.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = doc.Close() }()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PAGE\tWIDTH\tHEIGHT\tORIGIN\tROTATE")
			for i := 1; i <= doc.NumPage(); i++ {
				page, err := ipdf.FindPage(doc.Reader(), i)
				if err != nil {
					return err
				}
				x, y := page.Origin()
				fmt.Fprintf(w, "%d\t%g\t%g\t%g,%g\t%d\n", i, page.Width(), page.Height(), x, y, page.Rotate)
			}

			found, err := ipdf.ScanImages(doc.Reader())
			if err != nil {
				return err
			}
			if len(found) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "PAGE\tNAME\tOBJECT\tSIZE\tFILTER\tALPHA")
				for _, img := range found {
					fmt.Fprintf(w, "%d\t%s\t%d\t%dx%d\t%s\t%v\n", img.Page, img.Name, img.ID, img.Width, img.Height, img.Filter, img.SMask)
				}
			}
			return w.Flush()
		},
	}
}
