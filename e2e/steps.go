package e2e

import (
	"github.com/cucumber/godog"

	"aroundtable/e2e/steps/common"
	"aroundtable/e2e/steps/grouping"
	"aroundtable/e2e/steps/roster"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (status and body assertions)
	common.RegisterSteps(ctx, tc)

	// Register roster management steps
	roster.RegisterSteps(ctx, tc)

	// Register generation, editing and history steps
	grouping.RegisterSteps(ctx, tc)
}
