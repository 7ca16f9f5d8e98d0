package main

import (
	"github.com/smallbiznis/costline/internal/billing"
	"github.com/smallbiznis/costline/internal/clock"
	"github.com/smallbiznis/costline/internal/commitment"
	"github.com/smallbiznis/costline/internal/config"
	"github.com/smallbiznis/costline/internal/costcode"
	"github.com/smallbiznis/costline/internal/migration"
	"github.com/smallbiznis/costline/internal/observability"
	"github.com/smallbiznis/costline/internal/server"
	"github.com/smallbiznis/costline/internal/submitlock"
	"github.com/smallbiznis/costline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
		clock.Module,
		submitlock.Module,

		// Functional Domains
		costcode.Module,
		commitment.Module,
		billing.Module,

		server.Module,
	)
	app.Run()
}
