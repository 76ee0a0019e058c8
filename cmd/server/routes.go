package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dao-ledger.backend/internal/interfaces/http/handlers"
	"dao-ledger.backend/internal/interfaces/http/middleware"
	"dao-ledger.backend/pkg/metrics"
)

const (
	serviceName    = "dao-ledger-backend"
	serviceVersion = "0.1.0"
)

type routeDeps struct {
	walletHandler     *handlers.WalletHandler
	ledgerHandler     *handlers.LedgerHandler
	governanceHandler *handlers.GovernanceHandler
	authMiddleware    gin.HandlerFunc
	ownerMiddleware   gin.HandlerFunc
}

func applyCORSMiddleware(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, Idempotency-Key")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
}

func registerHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
			"version": serviceVersion,
		})
	})
}

func registerMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func registerAPIV1Routes(r *gin.Engine, d routeDeps) {
	v1 := r.Group("/api/v1")
	v1.Use(d.authMiddleware)
	{
		// Wallet routes; anything that touches key material needs the owner role
		wallets := v1.Group("/wallets")
		{
			wallets.GET("", d.walletHandler.ListWallets)
			wallets.GET("/:daoId", d.walletHandler.GetWallet)
			wallets.POST("/mnemonic/validate", d.walletHandler.ValidateMnemonic)
			wallets.POST("/:daoId/refresh", d.walletHandler.RefreshBalance)

			owner := wallets.Group("")
			owner.Use(d.ownerMiddleware)
			owner.POST("/mnemonic", d.walletHandler.GenerateMnemonic)
			owner.POST("", d.walletHandler.CreateWallet)
			owner.POST("/restore", d.walletHandler.RestoreWallet)
			owner.POST("/import", d.walletHandler.ImportWallet)
			owner.GET("/:daoId/export", d.walletHandler.ExportWallet)
			owner.PUT("/:daoId/currency", d.walletHandler.UpdateCurrency)
			owner.DELETE("/:daoId", d.walletHandler.DeleteWallet)
			owner.DELETE("", d.walletHandler.ClearWallets)
		}

		// Ledger routes
		daos := v1.Group("/daos/:daoId")
		{
			daos.POST("/transfers", d.ownerMiddleware, middleware.IdempotencyMiddleware(), d.ledgerHandler.Transfer)
			daos.GET("/history", d.ledgerHandler.History)
		}
		v1.GET("/protocol-balances", d.ledgerHandler.ProtocolBalances)

		rooms := v1.Group("/rooms/:roomId")
		{
			rooms.POST("/contributions", d.ledgerHandler.SubmitContribution)
			rooms.POST("/reactions", d.ledgerHandler.React)
			rooms.GET("/events/:eventId/verify-permission", d.ledgerHandler.VerifyPermission)
		}

		// Governance routes
		gov := v1.Group("/gov/:govId")
		{
			gov.GET("/agenda-permission", d.governanceHandler.AgendaPermission)
			gov.GET("/settings", d.governanceHandler.GetGovSettings)
			gov.PUT("/settings", d.governanceHandler.PutGovSettings)
		}

		dca := v1.Group("/dca/:dcaId")
		{
			dca.GET("/settings", d.governanceHandler.GetDCASettings)
			dca.PUT("/settings", d.governanceHandler.PutDCASettings)
			dca.POST("/settings/toggle-self", d.governanceHandler.ToggleSelfVerification)
		}

		agendas := v1.Group("/agendas/:roomId")
		{
			agendas.POST("/snapshot", d.governanceHandler.CreateSnapshot)
			agendas.GET("/snapshot", d.governanceHandler.GetSnapshot)
			agendas.GET("/voting-power", d.governanceHandler.VotingPower)
		}
	}
}
