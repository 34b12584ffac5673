package roster

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	DELETE(path string) error
	PUT(path string, body any) error
	GetLastStatus() int
	GetLastBody() []byte
	GetResponseField(field string) (any, error)
	SetFamilyID(name, id string)
	GetFamilyID(name string) string
}

// RegisterSteps registers roster management step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &rosterSteps{tc: tc}

	ctx.Step(`^the roster is empty$`, steps.clearRoster)
	ctx.Step(`^the families "([^"]*)" are on the roster$`, steps.addFamilies)
	ctx.Step(`^I add a family named "([^"]*)"$`, steps.addFamily)
	ctx.Step(`^I rename family "([^"]*)" to "([^"]*)"$`, steps.renameFamily)
	ctx.Step(`^I remove family "([^"]*)"$`, steps.removeFamily)
	ctx.Step(`^the roster should list "([^"]*)"$`, steps.rosterShouldList)
}

type rosterSteps struct {
	tc TestContext
}

type family struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *rosterSteps) list() ([]family, error) {
	if err := s.tc.GET("/families"); err != nil {
		return nil, err
	}
	if s.tc.GetLastStatus() != http.StatusOK {
		return nil, fmt.Errorf("list families: status %d", s.tc.GetLastStatus())
	}
	var resp struct {
		Families []family `json:"families"`
	}
	if err := json.Unmarshal(s.tc.GetLastBody(), &resp); err != nil {
		return nil, err
	}
	return resp.Families, nil
}

func (s *rosterSteps) clearRoster() error {
	families, err := s.list()
	if err != nil {
		return err
	}
	for _, f := range families {
		if err := s.tc.DELETE("/families/" + f.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *rosterSteps) addFamilies(names string) error {
	for _, name := range strings.Split(names, ",") {
		if err := s.addFamily(strings.TrimSpace(name)); err != nil {
			return err
		}
		if s.tc.GetLastStatus() != http.StatusCreated {
			return fmt.Errorf("add %q: status %d: %s", name, s.tc.GetLastStatus(), s.tc.GetLastBody())
		}
	}
	return nil
}

func (s *rosterSteps) addFamily(name string) error {
	if err := s.tc.POST("/families", map[string]any{"name": name}); err != nil {
		return err
	}
	if s.tc.GetLastStatus() == http.StatusCreated {
		id, err := s.tc.GetResponseField("id")
		if err != nil {
			return err
		}
		s.tc.SetFamilyID(name, id.(string))
	}
	return nil
}

func (s *rosterSteps) renameFamily(name, newName string) error {
	id := s.tc.GetFamilyID(name)
	if id == "" {
		return fmt.Errorf("unknown family %q", name)
	}
	if err := s.tc.PUT("/families/"+id, map[string]any{"name": newName}); err != nil {
		return err
	}
	s.tc.SetFamilyID(newName, id)
	return nil
}

func (s *rosterSteps) removeFamily(name string) error {
	id := s.tc.GetFamilyID(name)
	if id == "" {
		return fmt.Errorf("unknown family %q", name)
	}
	return s.tc.DELETE("/families/" + id)
}

func (s *rosterSteps) rosterShouldList(names string) error {
	families, err := s.list()
	if err != nil {
		return err
	}
	got := make([]string, len(families))
	for i, f := range families {
		got[i] = f.Name
	}
	if strings.Join(got, ", ") != names {
		return fmt.Errorf("expected roster %q, got %q", names, strings.Join(got, ", "))
	}
	return nil
}
