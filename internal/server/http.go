package server

import (
	"fmt"

	"credit-service/internal/conf"
	"credit-service/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(c *conf.Bootstrap, credit *service.CreditService, logger log.Logger) (*http.Server, error) {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		d, err := c.Server.Http.Timeout.AsDuration()
		if err != nil {
			return nil, fmt.Errorf("server.http.timeout: %w", err)
		}
		if d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}
	srv := http.NewServer(opts...)

	srv.Handle("/metrics", promhttp.Handler())

	r := srv.Route("/v1")
	r.GET("/credits/status", credit.GetStatus)
	r.POST("/credits/sync", credit.TriggerSync)
	r.GET("/credits/{subscription_id}", credit.GetCredits)
	r.POST("/credits/{subscription_id}/refresh", credit.RefreshCredits)
	r.GET("/credits/{subscription_id}/stats", credit.GetUsageStats)

	return srv, nil
}
