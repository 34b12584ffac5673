package common

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GetLastStatus() int
	GetLastBody() []byte
	GetLastHeader(name string) string
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers generic response assertions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the response body should contain "([^"]*)"$`, steps.bodyShouldContain)
	ctx.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, steps.headerShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) statusShouldBe(expected int) error {
	if got := s.tc.GetLastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(field, expected string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) errorShouldBe(code string) error {
	return s.fieldShouldBe("error", code)
}

func (s *commonSteps) bodyShouldContain(text string) error {
	text = strings.ReplaceAll(text, `\n`, "\n")
	if !strings.Contains(string(s.tc.GetLastBody()), text) {
		return fmt.Errorf("expected body to contain %q, got %q", text, s.tc.GetLastBody())
	}
	return nil
}

func (s *commonSteps) headerShouldContain(name, text string) error {
	if got := s.tc.GetLastHeader(name); !strings.Contains(got, text) {
		return fmt.Errorf("expected header %s to contain %q, got %q", name, text, got)
	}
	return nil
}
