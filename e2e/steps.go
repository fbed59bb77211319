package e2e

import (
	"github.com/cucumber/godog"

	"uadcheck/e2e/steps/findings"
	"uadcheck/e2e/steps/payload"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Payload construction and the validation run
	payload.RegisterSteps(ctx, tc)

	// Status and finding assertions
	findings.RegisterSteps(ctx, tc)
}
