package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/liliang-cn/billchat/internal/seed"
	"github.com/liliang-cn/billchat/internal/service"
	"github.com/spf13/cobra"
)

var (
	seedFile  string
	seedReset bool

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Load bills from a manifest (defaults to the built-in sample bills)",
		RunE:  runSeed,
	}
	billsCmd = &cobra.Command{
		Use:   "bills",
		Short: "Print stored bills and chat counts",
		RunE:  runBills,
	}
	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Delete all chat history and bills",
		RunE:  runReset,
	}
)

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML manifest of bills")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "Delete existing bills and chats first")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var m *seed.Manifest
	if seedFile != "" {
		m, err = seed.Load(seedFile)
	} else {
		m, err = seed.Default()
	}
	if err != nil {
		return err
	}

	ingest := service.NewIngestService(a.bills, a.chats, a.cfg.Storage.PDFs, a.logger)
	res, err := ingest.Import(cmdContext(cmd), m, seedReset)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if seedReset {
		fmt.Fprintf(out, "Removed %d existing bills\n", res.Cleared)
	}
	fmt.Fprintf(out, "Imported %d bills (%d PDFs copied)\n", res.Imported, res.Copied)
	return nil
}

func runBills(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmdContext(cmd)
	admin := a.adminService()
	stats, err := admin.GetStats(ctx)
	if err != nil {
		return err
	}
	bills, err := admin.ListBills(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Bills: %d  Chats: %d\n", stats.TotalBills, stats.TotalChats)
	if len(bills) == 0 {
		fmt.Fprintln(out, "No bills found. Run `billchat seed` to load the sample bills.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPUBLISHED\tTITLE\tPDF")
	for _, b := range bills {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.PublicationDate.Format("2006-01-02"), b.Title, b.PdfURL)
	}
	return tw.Flush()
}

func runReset(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	chats, bills, err := a.adminService().Reset(cmdContext(cmd))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d chat messages and %d bills\n", chats, bills)
	return nil
}

