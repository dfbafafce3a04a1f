package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/liliang-cn/billchat/internal/domain"
	"github.com/liliang-cn/billchat/internal/stream"
	"github.com/spf13/cobra"
)

var (
	askServer string
	askBill   string

	askCmd = &cobra.Command{
		Use:   "ask [message]",
		Short: "Stream an answer about a bill from a running server",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
)

func init() {
	askCmd.Flags().StringVar(&askServer, "server", "http://localhost:8080", "Server base URL")
	askCmd.Flags().StringVar(&askBill, "bill", "", "Bill ID")
	_ = askCmd.MarkFlagRequired("bill")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	body, err := json.Marshal(domain.ChatRequest{BillID: askBill, Message: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(askServer, "/")+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	p := &livePrinter{out: cmd.OutOrStdout()}
	final, err := stream.ReadExchange(ctx, resp.Body, p.update)
	if err != nil {
		return err
	}
	p.finish(final)
	return nil
}

// livePrinter prints the growing thinking and answer text as deltas
type livePrinter struct {
	out      io.Writer
	thinking string
	answer   string
	inAnswer bool
}

func (p *livePrinter) update(s stream.State) {
	if s.Thinking != nil && !p.inAnswer {
		if p.thinking == "" && *s.Thinking != "" {
			fmt.Fprint(p.out, "[thinking] ")
		}
		p.thinking = p.extend(p.thinking, *s.Thinking)
	}
	if s.Answer != nil {
		if !p.inAnswer {
			if p.thinking != "" {
				fmt.Fprint(p.out, "\n\n")
			}
			p.inAnswer = true
		}
		p.answer = p.extend(p.answer, *s.Answer)
	}
}

// extend prints what next adds to shown. A rewritten text is printed whole
// on a new line.
func (p *livePrinter) extend(shown, next string) string {
	switch {
	case strings.HasPrefix(next, shown):
		fmt.Fprint(p.out, next[len(shown):])
	case !strings.HasPrefix(shown, next):
		fmt.Fprint(p.out, "\n"+next)
	default:
		return shown
	}
	return next
}

func (p *livePrinter) finish(s stream.State) {
	p.update(s)
	fmt.Fprintln(p.out)
}
