//go:build wireinject

package app

import (
	"log/slog"
	"net/http"

	"github.com/google/wire"
	"github.com/ridecare/ridecare/internal/conf"
	"github.com/ridecare/ridecare/internal/core/review"
	"github.com/ridecare/ridecare/internal/data"
	"github.com/ridecare/ridecare/internal/web/api"
)

func wireApp(bc *conf.Bootstrap, log *slog.Logger) (http.Handler, func(), error) {
	panic(wire.Build(data.ProviderSet, api.ProviderSet))
}

func wireReview(bc *conf.Bootstrap, log *slog.Logger) (*review.Manager, func(), error) {
	panic(wire.Build(data.ProviderSet, api.ReviewProviderSet))
}
