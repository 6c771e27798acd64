package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/simulator"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type simulateCmd struct {
	principal    string
	rate         string
	years        string
	contribution string
	frequency    string
	fee          string
	currency     string
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "project the growth of an investment plan" }
func (*simulateCmd) Usage() string {
	return `tradectl simulate -principal <amount> -rate <pct> -years <n> [-contribution <amount> -frequency <f>] [-fee <pct>]

  Projects compound growth with periodic contributions and an annual fee.
  Frequency is one of monthly, quarterly, yearly or none.
`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.principal, "principal", "0", "Initial amount invested.")
	f.StringVar(&c.rate, "rate", "0", "Expected annual return in percent.")
	f.StringVar(&c.years, "years", "1", "Horizon in years.")
	f.StringVar(&c.contribution, "contribution", "0", "Amount added every period.")
	f.StringVar(&c.frequency, "frequency", "monthly", "Contribution frequency.")
	f.StringVar(&c.fee, "fee", "0", "Annual fee in percent.")
	f.StringVar(&c.currency, "currency", "MAD", "Currency used to display amounts.")
}

func (c *simulateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in := simulator.Input{Frequency: domain.ContributionFrequency(c.frequency)}
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"principal", c.principal, &in.Principal},
		{"rate", c.rate, &in.AnnualRatePercent},
		{"years", c.years, &in.Years},
		{"contribution", c.contribution, &in.Contribution},
		{"fee", c.fee, &in.AnnualFeePercent},
	}
	for _, fl := range fields {
		d, err := decimal.NewFromString(fl.raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -%s: %v\n", fl.name, err)
			return subcommands.ExitUsageError
		}
		*fl.dst = d
	}

	res, err := simulator.Simulate(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	out := simulationOutput{
		FinalValue:        domain.FormatAmount(res.FinalValue, c.currency),
		ContributionTotal: domain.FormatAmount(res.ContributionTotal, c.currency),
		GrossGain:         domain.FormatAmount(res.GrossGain, c.currency),
		FeesTotal:         domain.FormatAmount(res.FeesTotal, c.currency),
		NetGain:           domain.FormatAmount(res.NetGain, c.currency),
		TotalPeriods:      res.TotalPeriods,
	}
	for _, p := range res.Timeline {
		out.Timeline = append(out.Timeline, timelineOutput{
			Year:  p.Year,
			Value: domain.FormatAmount(p.Value, c.currency),
			Fees:  domain.FormatAmount(p.FeesAccrued, c.currency),
		})
	}
	if err := printJSON(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type simulationOutput struct {
	FinalValue        string           `json:"final_value"`
	ContributionTotal string           `json:"contribution_total"`
	GrossGain         string           `json:"gross_gain"`
	FeesTotal         string           `json:"fees_total"`
	NetGain           string           `json:"net_gain"`
	TotalPeriods      int              `json:"total_periods"`
	Timeline          []timelineOutput `json:"timeline"`
}

type timelineOutput struct {
	Year  int    `json:"year"`
	Value string `json:"value"`
	Fees  string `json:"fees_accrued"`
}
