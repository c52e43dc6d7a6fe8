package donation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
)

type TestContext interface {
	Do(ctx context.Context, method, path string, body any) error
	ActorID(name string) (string, error)
	ResponseField(path string) (any, error)
	Save(key, value string)
	Saved(key string) (string, error)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &donationSteps{tc: tc}

	ctx.Step(`^I post a food donation "([^"]*)" expiring in (\d+) hours$`, steps.postFood)
	ctx.Step(`^I post a "([^"]*)" donation "([^"]*)"$`, steps.postItem)
	ctx.Step(`^I request status "([^"]*)"$`, steps.requestStatus)
	ctx.Step(`^I request status "([^"]*)" with reason "([^"]*)"$`, steps.requestStatusWithReason)
	ctx.Step(`^I view the donation$`, steps.view)
	ctx.Step(`^I list my donations$`, steps.listMine)
	ctx.Step(`^the donation should be accepted by "([^"]*)"$`, steps.acceptedBy)
}

type donationSteps struct {
	tc TestContext
}

func (s *donationSteps) post(ctx context.Context, body map[string]any) error {
	body["location"] = map[string]any{"address": "12 Harbor Rd", "lat": 51.5072, "lng": -0.1276}
	body["pickupOption"] = "pickup"
	if err := s.tc.Do(ctx, http.MethodPost, "/api/donations", body); err != nil {
		return err
	}
	donationID, err := s.tc.ResponseField("donation.id")
	if err != nil {
		return err
	}
	s.tc.Save("donation", fmt.Sprint(donationID))
	return nil
}

func (s *donationSteps) postFood(ctx context.Context, title string, hours int) error {
	return s.post(ctx, map[string]any{
		"category":   "food",
		"title":      title,
		"foodExpiry": time.Now().Add(time.Duration(hours) * time.Hour).UTC().Format(time.RFC3339),
	})
}

func (s *donationSteps) postItem(ctx context.Context, category, title string) error {
	body := map[string]any{"category": category, "title": title}
	if category == "financial" {
		body["amount"] = "25.00"
	} else {
		body["quantity"] = 1
	}
	return s.post(ctx, body)
}

func (s *donationSteps) statusPath() (string, error) {
	donationID, err := s.tc.Saved("donation")
	if err != nil {
		return "", err
	}
	return "/api/donations/" + donationID + "/status", nil
}

func (s *donationSteps) requestStatus(ctx context.Context, status string) error {
	path, err := s.statusPath()
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, http.MethodPatch, path, map[string]any{"status": status})
}

func (s *donationSteps) requestStatusWithReason(ctx context.Context, status, reason string) error {
	path, err := s.statusPath()
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, http.MethodPatch, path, map[string]any{"status": status, "reason": reason})
}

func (s *donationSteps) view(ctx context.Context) error {
	donationID, err := s.tc.Saved("donation")
	if err != nil {
		return err
	}
	return s.tc.Do(ctx, http.MethodGet, "/api/donations/"+donationID, nil)
}

func (s *donationSteps) listMine(ctx context.Context) error {
	return s.tc.Do(ctx, http.MethodGet, "/api/donations/mine", nil)
}

func (s *donationSteps) acceptedBy(_ context.Context, name string) error {
	want, err := s.tc.ActorID(name)
	if err != nil {
		return err
	}
	got, err := s.tc.ResponseField("donation.acceptedBy")
	if err != nil {
		return err
	}
	if fmt.Sprint(got) != want {
		return fmt.Errorf("expected acceptedBy %s, got %v", want, got)
	}
	return nil
}
