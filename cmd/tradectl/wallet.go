package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/efreitasn/papertrade/internal/app"
	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

var walletCommands = []subcommands.Command{
	&walletCmd{},
	&tradeCmd{side: domain.TransactionBuy},
	&tradeCmd{side: domain.TransactionSell},
	&historyCmd{},
	&snapshotCmd{},
	&resetCmd{},
}

// --- Output types ---

type walletOutput struct {
	OwnerID      string              `json:"owner_id"`
	Balance      string              `json:"balance"`
	TotalValue   string              `json:"total_value,omitempty"`
	ProfitLoss   string              `json:"profit_loss,omitempty"`
	Stale        bool                `json:"stale,omitempty"`
	Positions    []positionOutput    `json:"positions,omitempty"`
	Transactions []transactionOutput `json:"transactions,omitempty"`
}

type positionOutput struct {
	Symbol       string          `json:"symbol"`
	AssetType    string          `json:"asset_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	AvgCost      decimal.Decimal `json:"avg_cost"`
	CurrentValue string          `json:"current_value"`
	Unrealized   string          `json:"unrealized_pnl"`
}

type transactionOutput struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount string          `json:"total_amount"`
	Fee         string          `json:"fee"`
	RealizedPnL string          `json:"realized_pnl,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

type snapshotOutput struct {
	Timestamp  time.Time       `json:"timestamp"`
	TotalValue string          `json:"total_value"`
	Balance    string          `json:"available_balance"`
	Invested   string          `json:"invested_value"`
	ProfitLoss string          `json:"profit_loss"`
	Percent    decimal.Decimal `json:"profit_loss_percent"`
}

func toTransactionOutput(tx *domain.Transaction, currency string) transactionOutput {
	out := transactionOutput{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Symbol:      tx.Symbol,
		Quantity:    tx.Quantity,
		Price:       tx.Price,
		TotalAmount: domain.FormatAmount(tx.TotalAmount, currency),
		Fee:         domain.FormatAmount(tx.Fee, currency),
		Timestamp:   tx.Timestamp.UTC(),
	}
	if tx.RealizedPnL != nil {
		out.RealizedPnL = domain.FormatAmount(*tx.RealizedPnL, currency)
	}
	return out
}

func toSnapshotOutput(s *domain.PortfolioSnapshot, currency string) snapshotOutput {
	return snapshotOutput{
		Timestamp:  s.Timestamp.UTC(),
		TotalValue: domain.FormatAmount(s.TotalValue, currency),
		Balance:    domain.FormatAmount(s.AvailableBalance, currency),
		Invested:   domain.FormatAmount(s.InvestedValue, currency),
		ProfitLoss: domain.FormatAmount(s.ProfitLoss, currency),
		Percent:    s.ProfitLossPercent.Round(2),
	}
}

// ownerFlag is embedded by every command addressing a single wallet.
type ownerFlag struct {
	owner string
}

func (o *ownerFlag) register(f *flag.FlagSet) {
	f.StringVar(&o.owner, "owner", "", "Owner ID of the wallet.")
}

func (o *ownerFlag) check() subcommands.ExitStatus {
	if o.owner == "" {
		fmt.Fprintln(os.Stderr, "Error: -owner is required.")
		return subcommands.ExitUsageError
	}
	return subcommands.ExitSuccess
}

// --- wallet ---

type walletCmd struct{ ownerFlag }

func (*walletCmd) Name() string     { return "wallet" }
func (*walletCmd) Synopsis() string { return "show a wallet valued at current prices" }
func (*walletCmd) Usage() string {
	return `tradectl wallet -owner <id>

  Prints the balance, open positions and recent transactions of a wallet.
  The wallet is created with the starting balance if it does not exist.
`
}
func (c *walletCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *walletCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if st := c.check(); st != subcommands.ExitSuccess {
		return st
	}
	return withApp(ctx, func(a *app.App) error {
		view, err := a.Service.GetWallet(ctx, c.owner)
		if err != nil {
			return err
		}
		cur := view.Wallet.Currency
		out := walletOutput{
			OwnerID:    view.Wallet.OwnerID,
			Balance:    domain.FormatAmount(view.Wallet.Balance, cur),
			TotalValue: domain.FormatAmount(view.Stats.TotalValue, cur),
			ProfitLoss: domain.FormatAmount(view.Stats.TotalProfitLoss, cur),
			Stale:      view.Stats.Stale,
		}
		for _, pv := range view.Stats.Positions {
			out.Positions = append(out.Positions, positionOutput{
				Symbol:       pv.Position.Symbol,
				AssetType:    string(pv.Position.AssetType),
				Quantity:     pv.Position.Quantity,
				AvgCost:      pv.Position.AvgCost,
				CurrentValue: domain.FormatAmount(pv.CurrentValue, cur),
				Unrealized:   domain.FormatAmount(pv.UnrealizedPnL, cur),
			})
		}
		for _, tx := range view.Transactions {
			out.Transactions = append(out.Transactions, toTransactionOutput(tx, cur))
		}
		return printJSON(out)
	})
}

// --- buy / sell ---

type tradeCmd struct {
	ownerFlag
	side      domain.TransactionType
	symbol    string
	assetType string
	market    string
	quantity  string
	price     string
	notes     string
}

func (c *tradeCmd) Name() string {
	if c.side == domain.TransactionSell {
		return "sell"
	}
	return "buy"
}

func (c *tradeCmd) Synopsis() string {
	return fmt.Sprintf("%s an instrument at a given price", c.Name())
}

func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`tradectl %s -owner <id> -symbol <sym> -type <asset type> -qty <n> -price <p>

  Executes a %s against the wallet. The configured fee rate applies.
`, c.Name(), c.side)
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.symbol, "symbol", "", "Instrument symbol.")
	f.StringVar(&c.assetType, "type", "STOCK", "Asset type (STOCK, CRYPTO, OPCVM, INDEX).")
	if c.side == domain.TransactionBuy {
		f.StringVar(&c.market, "market", "", "Market (BVC, CRYPTO, OTHER). Defaults by asset type.")
	}
	f.StringVar(&c.quantity, "qty", "", "Quantity, fractional allowed.")
	f.StringVar(&c.price, "price", "", "Unit price.")
	f.StringVar(&c.notes, "notes", "", "Free-form note stored with the transaction.")
}

func (c *tradeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if st := c.check(); st != subcommands.ExitSuccess {
		return st
	}
	qty, err := decimal.NewFromString(c.quantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -qty: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, err := decimal.NewFromString(c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing -price: %v\n", err)
		return subcommands.ExitUsageError
	}

	return withApp(ctx, func(a *app.App) error {
		var (
			tx  *domain.Transaction
			err error
		)
		if c.side == domain.TransactionSell {
			tx, err = a.Service.Sell(ctx, service.SellRequest{
				OwnerID:   c.owner,
				Symbol:    c.symbol,
				AssetType: c.assetType,
				Quantity:  qty,
				Price:     price,
				Notes:     c.notes,
			})
		} else {
			tx, err = a.Service.Buy(ctx, service.BuyRequest{
				OwnerID:   c.owner,
				Symbol:    c.symbol,
				AssetType: c.assetType,
				Market:    c.market,
				Quantity:  qty,
				Price:     price,
				Notes:     c.notes,
			})
		}
		if err != nil {
			return err
		}
		return printJSON(toTransactionOutput(tx, a.Service.Currency()))
	})
}

// --- history ---

type historyCmd struct {
	ownerFlag
	period string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list recorded snapshots of a wallet" }
func (*historyCmd) Usage() string {
	return `tradectl history -owner <id> [-p 1W|1M|1Y|MAX]

  Lists the portfolio snapshots recorded within the period, oldest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.period, "p", "1M", "History period (1W, 1M, 1Y, MAX).")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if st := c.check(); st != subcommands.ExitSuccess {
		return st
	}
	return withApp(ctx, func(a *app.App) error {
		snaps, err := a.Service.GetHistory(ctx, c.owner, c.period)
		if err != nil {
			return err
		}
		out := make([]snapshotOutput, len(snaps))
		for i, s := range snaps {
			out[i] = toSnapshotOutput(s, a.Service.Currency())
		}
		return printJSON(out)
	})
}

// --- snapshot ---

type snapshotCmd struct{ ownerFlag }

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "record a snapshot of a wallet now" }
func (*snapshotCmd) Usage() string {
	return `tradectl snapshot -owner <id>
`
}
func (c *snapshotCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if st := c.check(); st != subcommands.ExitSuccess {
		return st
	}
	return withApp(ctx, func(a *app.App) error {
		snap, err := a.Service.RecordSnapshot(ctx, c.owner)
		if err != nil {
			return err
		}
		return printJSON(toSnapshotOutput(snap, a.Service.Currency()))
	})
}

// --- reset ---

type resetCmd struct{ ownerFlag }

func (*resetCmd) Name() string     { return "reset" }
func (*resetCmd) Synopsis() string { return "restore a wallet to its starting balance" }
func (*resetCmd) Usage() string {
	return `tradectl reset -owner <id>

  Deletes every position, transaction and snapshot of the wallet and
  restores the configured starting balance.
`
}
func (c *resetCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *resetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if st := c.check(); st != subcommands.ExitSuccess {
		return st
	}
	return withApp(ctx, func(a *app.App) error {
		w, err := a.Service.ResetWallet(ctx, c.owner)
		if err != nil {
			return err
		}
		return printJSON(walletOutput{
			OwnerID: w.OwnerID,
			Balance: domain.FormatAmount(w.Balance, w.Currency),
		})
	})
}
