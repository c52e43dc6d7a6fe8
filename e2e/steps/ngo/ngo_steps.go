package ngo

import (
	"context"
	"net/http"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

type TestContext interface {
	Do(ctx context.Context, method, path string, body any) error
	ActorID(name string) (string, error)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ngoSteps{tc: tc}

	ctx.Step(`^I register the NGO profile "([^"]*)"$`, steps.register)
	ctx.Step(`^I verify the NGO "([^"]*)"$`, steps.verify)
	ctx.Step(`^I reject the NGO "([^"]*)" because "([^"]*)"$`, steps.reject)
	ctx.Step(`^I list NGOs with status "([^"]*)"$`, steps.list)
}

type ngoSteps struct {
	tc TestContext
}

func (s *ngoSteps) register(ctx context.Context, name string) error {
	return s.tc.Do(ctx, http.MethodPost, "/api/ngos/profile", map[string]any{
		"name":               name,
		"registrationNumber": "REG-" + uuid.NewString()[:8],
		"contactEmail":       "team@example.org",
	})
}

func (s *ngoSteps) verify(ctx context.Context, actor string) error {
	ngoID, err := s.tc.ActorID(actor)
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, http.MethodPost, "/admin/ngos/"+ngoID+"/verify", nil)
}

func (s *ngoSteps) reject(ctx context.Context, actor, reason string) error {
	ngoID, err := s.tc.ActorID(actor)
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, http.MethodPost, "/admin/ngos/"+ngoID+"/reject", map[string]any{"reason": reason})
}

func (s *ngoSteps) list(ctx context.Context, status string) error {
	return s.tc.Do(ctx, http.MethodGet, "/admin/ngos?status="+status, nil)
}
