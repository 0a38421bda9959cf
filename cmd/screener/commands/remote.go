package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockwatch/internal/api/handlers"
	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/pkg/httputil"
	"github.com/wonny/stockwatch/pkg/logger"
)

// remoteCmd talks to a running API server
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "실행 중인 API 서버 제어",
	Long: `실행 중인 API 서버에 요청을 보냅니다. DB 접속 정보가 필요 없습니다.

Subcommands:
  run                 - 스크리닝 수동 실행
  latest              - 최근 실행 결과
  list                - 워치리스트 조회
  add [ticker]        - 수동 편입
  remove [ticker]     - 편입 해제

Example:
  go run ./cmd/screener remote latest --url http://screener:8089`,
}

var (
	remoteURL    string
	remoteReason string
)

var (
	remoteRunCmd = &cobra.Command{
		Use:   "run",
		Short: "스크리닝 수동 실행",
		RunE:  remoteRun,
	}

	remoteLatestCmd = &cobra.Command{
		Use:   "latest",
		Short: "최근 실행 결과",
		RunE:  remoteLatest,
	}

	remoteListCmd = &cobra.Command{
		Use:   "list",
		Short: "워치리스트 조회",
		RunE:  remoteList,
	}

	remoteAddCmd = &cobra.Command{
		Use:   "add [ticker]",
		Short: "수동 편입",
		Args:  cobra.ExactArgs(1),
		RunE:  remoteAdd,
	}

	remoteRemoveCmd = &cobra.Command{
		Use:   "remove [ticker]",
		Short: "편입 해제",
		Args:  cobra.ExactArgs(1),
		RunE:  remoteRemove,
	}
)

func init() {
	rootCmd.AddCommand(remoteCmd)
	remoteCmd.AddCommand(remoteRunCmd, remoteLatestCmd, remoteListCmd, remoteAddCmd, remoteRemoveCmd)

	remoteCmd.PersistentFlags().StringVar(&remoteURL, "url", "http://localhost:8089", "API base URL")
	remoteAddCmd.Flags().StringVar(&remoteReason, "reason", handlers.ReasonManual, "admission reason")
}

func newRemoteClient() *httputil.Client {
	log := logger.Nop()
	if verbose {
		log = logger.NewWithWriter(remoteCmd.ErrOrStderr(), "debug", "")
	}
	return httputil.New(remoteURL, log).WithTimeout(15 * time.Second)
}

func remoteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func remoteRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := remoteContext()
	defer cancel()

	var resp handlers.TriggerResponse
	if err := newRemoteClient().DoJSON(ctx, http.MethodPost, "/api/screening/run", nil, &resp); err != nil {
		return describeRemoteError(err)
	}

	PrintSuccess(resp.Message)
	return nil
}

func remoteLatest(cmd *cobra.Command, args []string) error {
	ctx, cancel := remoteContext()
	defer cancel()

	var summary contracts.RunSummary
	if err := newRemoteClient().DoJSON(ctx, http.MethodGet, "/api/screening/runs/latest", nil, &summary); err != nil {
		return describeRemoteError(err)
	}

	PrintRunSummary(&summary)
	return nil
}

func remoteList(cmd *cobra.Command, args []string) error {
	ctx, cancel := remoteContext()
	defer cancel()

	var resp handlers.ListResponse
	if err := newRemoteClient().DoJSON(ctx, http.MethodGet, "/api/watchlist", nil, &resp); err != nil {
		return describeRemoteError(err)
	}

	// date_added arrives as a plain calendar date
	entries := make([]contracts.WatchlistEntry, 0, len(resp.Entries))
	for _, v := range resp.Entries {
		e := v.WatchlistEntry
		if d, err := time.Parse("2006-01-02", v.DateAdded); err == nil {
			e.DateAdded = d
		}
		entries = append(entries, e)
	}

	PrintWatchlist(entries)
	return nil
}

func remoteAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := remoteContext()
	defer cancel()

	req := handlers.AddRequest{Ticker: args[0], Reason: remoteReason}
	var entry struct {
		Ticker string `json:"ticker"`
		Reason string `json:"reason"`
	}
	if err := newRemoteClient().DoJSON(ctx, http.MethodPost, "/api/watchlist", req, &entry); err != nil {
		return describeRemoteError(err)
	}

	PrintSuccess(fmt.Sprintf("%s is on the watchlist (%s)", entry.Ticker, entry.Reason))
	return nil
}

func remoteRemove(cmd *cobra.Command, args []string) error {
	ctx, cancel := remoteContext()
	defer cancel()

	if err := newRemoteClient().DoJSON(ctx, http.MethodDelete, "/api/watchlist/"+args[0], nil, nil); err != nil {
		return describeRemoteError(err)
	}

	PrintSuccess(args[0] + " removed")
	return nil
}

func describeRemoteError(err error) error {
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("screening was triggered less than a minute ago: %w", err)
	}
	return err
}
