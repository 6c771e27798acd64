package handler

import (
	"net/http"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/efreitasn/papertrade/internal/simulator"
	"github.com/shopspring/decimal"
)

// SimulationHandler handles HTTP requests for the growth simulator.
type SimulationHandler struct {
	svc *service.PortfolioService
}

// NewSimulationHandler creates a new SimulationHandler.
func NewSimulationHandler(svc *service.PortfolioService) *SimulationHandler {
	return &SimulationHandler{svc: svc}
}

type simulationRequest struct {
	Principal         decimal.Decimal `json:"principal"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	Years             decimal.Decimal `json:"years"`
	Contribution      decimal.Decimal `json:"contribution"`
	Frequency         string          `json:"frequency"`
	AnnualFeePercent  decimal.Decimal `json:"annual_fee_percent"`
}

type timelinePointResponse struct {
	Year              int     `json:"year"`
	Value             float64 `json:"value"`
	ContributionTotal float64 `json:"contribution_total"`
	FeesAccrued       float64 `json:"fees_accrued"`
}

type simulationResponse struct {
	FinalValue        float64                 `json:"final_value"`
	GrossGain         float64                 `json:"gross_gain"`
	FeesTotal         float64                 `json:"fees_total"`
	NetGain           float64                 `json:"net_gain"`
	ContributionTotal float64                 `json:"contribution_total"`
	PeriodsPerYear    int                     `json:"periods_per_year"`
	TotalPeriods      int                     `json:"total_periods"`
	Timeline          []timelinePointResponse `json:"timeline"`
}

// Simulate handles POST /simulations.
func (h *SimulationHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.svc.Simulate(simulator.Input{
		Principal:         req.Principal,
		AnnualRatePercent: req.AnnualRatePercent,
		Years:             req.Years,
		Contribution:      req.Contribution,
		Frequency:         domain.ContributionFrequency(req.Frequency),
		AnnualFeePercent:  req.AnnualFeePercent,
	})
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	timeline := make([]timelinePointResponse, len(res.Timeline))
	for i, p := range res.Timeline {
		timeline[i] = timelinePointResponse{
			Year:              p.Year,
			Value:             amount(p.Value),
			ContributionTotal: amount(p.ContributionTotal),
			FeesAccrued:       amount(p.FeesAccrued),
		}
	}

	WriteJSON(w, http.StatusOK, simulationResponse{
		FinalValue:        amount(res.FinalValue),
		GrossGain:         amount(res.GrossGain),
		FeesTotal:         amount(res.FeesTotal),
		NetGain:           amount(res.NetGain),
		ContributionTotal: amount(res.ContributionTotal),
		PeriodsPerYear:    res.PeriodsPerYear,
		TotalPeriods:      res.TotalPeriods,
		Timeline:          timeline,
	})
}
