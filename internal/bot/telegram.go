package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"aptos-pulse/internal/domain"

	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 30 * time.Second

type PerformanceReader interface {
	GetPerformance(ctx context.Context, wallet, asset, timeframe string) (*domain.PerformanceResponse, error)
}

type LatestPriceReader interface {
	GetLatestPrice(ctx context.Context, asset string) (*domain.TokenPrice, error)
}

// StartTelegramBot serves /ping, /price and /performance over long polling.
// It is a no-op when token is empty.
func StartTelegramBot(token string, performance PerformanceReader, prices LatestPriceReader) {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(priceReply(ctx, prices, c.Args()))
	})

	b.Handle("/performance", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(performanceReply(ctx, performance, c.Args()))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func priceReply(ctx context.Context, prices LatestPriceReader, args []string) string {
	asset := domain.AptosCoinAddress
	if len(args) > 0 {
		asset = args[0]
	}
	price, err := prices.GetLatestPrice(ctx, asset)
	if err != nil {
		return fmt.Sprintf("Error fetching price for %s: %v", asset, err)
	}
	return fmt.Sprintf("%s\nPrice: $%.4f\nAs of: %s\nSource: %s",
		asset, price.PriceUSD, price.BucketedTimestamp, price.Source)
}

func performanceReply(ctx context.Context, performance PerformanceReader, args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("Usage: /performance <wallet> [timeframe]\nTimeframes: %s",
			strings.Join(domain.SupportedTimeframes, ", "))
	}
	wallet := args[0]
	timeframe := "7d"
	if len(args) > 1 {
		timeframe = args[1]
	}

	resp, err := performance.GetPerformance(ctx, wallet, "", timeframe)
	if err != nil {
		return fmt.Sprintf("Error fetching performance for %s: %v", wallet, err)
	}
	return formatPerformance(wallet, resp)
}

func formatPerformance(wallet string, resp *domain.PerformanceResponse) string {
	if resp.DataPoints == 0 {
		msg := resp.Message
		if msg == "" {
			msg = "No data points in this timeframe"
		}
		return fmt.Sprintf("%s (%s)\n%s", wallet, resp.Timeframe, msg)
	}

	first := resp.Data[0]
	last := resp.Data[len(resp.Data)-1]
	change := "n/a"
	if first.Value != 0 {
		change = fmt.Sprintf("%+.2f%%", (last.Value-first.Value)/first.Value*100)
	}
	return fmt.Sprintf("%s (%s)\nPoints: %d\nStart: $%.2f\nEnd: $%.2f\nChange: %s",
		wallet, resp.Timeframe, resp.DataPoints, first.Value, last.Value, change)
}
