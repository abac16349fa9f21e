package api

import (
	"github.com/go-chi/chi"
	httpSwagger "github.com/swaggo/http-swagger"
)

func (a *Server) SetupRoutes(r *chi.Mux) {
	handlers := a.handlers
	r.Get("/healthcheck", registerHandler(handlers.HealthCheck))

	r.Post("/v1/voucher-requests", registerHandler(handlers.CreateVoucherRequest))
	r.Get("/v1/voucher-requests", registerHandler(handlers.GetVoucherRequests))
	r.Get("/v1/voucher-requests/fee", registerHandler(handlers.GetCurrentFee))
	r.Get("/v1/voucher-requests/eligibility", registerHandler(handlers.GetFulfillmentEligibility))
	r.Get("/v1/voucher-requests/events", registerHandler(handlers.GetVoucherRequestEvents))
	r.Post("/v1/claims", registerHandler(handlers.ClaimVoucherRequest))
	r.Get("/v1/claims", registerHandler(handlers.GetVoucher))
	r.Post("/v1/refunds", registerHandler(handlers.RefundVoucherRequest))

	r.Post("/v1/liquidity/deposit", registerHandler(handlers.DepositLiquidity))
	r.Post("/v1/liquidity/withdraw", registerHandler(handlers.WithdrawLiquidity))
	r.Get("/v1/liquidity", registerHandler(handlers.GetLiquidityBalances))

	r.Post("/v1/stake/register", registerHandler(handlers.RegisterXLP))
	r.Post("/v1/stake/add", registerHandler(handlers.AddStake))
	r.Post("/v1/stake/unbonding", registerHandler(handlers.StartUnbonding))
	r.Post("/v1/stake/unbonding/complete", registerHandler(handlers.CompleteUnbonding))
	r.Post("/v1/stake/slash", registerHandler(handlers.SlashXLP))
	r.Get("/v1/stake", registerHandler(handlers.GetXLPStake))
	r.Get("/v1/stake/chains", registerHandler(handlers.GetXLPChains))
	r.Get("/v1/stake/unbonding/remaining", registerHandler(handlers.GetUnbondingTimeRemaining))
	r.Get("/v1/stake/slashes", registerHandler(handlers.GetSlashRecords))

	r.Get("/v1/stats", registerHandler(handlers.GetOverallStats))
	r.Get("/v1/stats/xlp", registerHandler(handlers.GetXlpStats))

	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
