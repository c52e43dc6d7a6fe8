package e2e

import (
	"github.com/cucumber/godog"

	"givebridge/e2e/steps/common"
	"givebridge/e2e/steps/donation"
	"givebridge/e2e/steps/ngo"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	donation.RegisterSteps(ctx, tc)
	ngo.RegisterSteps(ctx, tc)
}
