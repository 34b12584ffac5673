package grouping

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetLastStatus() int
	GetLastBody() []byte
	GetFamilyID(name string) string
	SetDraftID(id string)
	GetDraftID() string
	SetSessionID(id string)
	GetSessionID() string
}

// RegisterSteps registers generation, draft editing and history steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &groupingSteps{tc: tc}

	ctx.Step(`^I generate groups of (\d+)$`, steps.generate)
	ctx.Step(`^I generate groups of (\d+) for "([^"]*)"$`, steps.generateFor)
	ctx.Step(`^the draft should have group sizes "([^"]*)"$`, steps.groupSizesShouldBe)
	ctx.Step(`^the draft repeat score should be (\d+)$`, steps.repeatScoreShouldBe)
	ctx.Step(`^I add an empty group$`, steps.addGroup)
	ctx.Step(`^I move "([^"]*)" to group (\d+)$`, steps.move)
	ctx.Step(`^group (\d+) should contain "([^"]*)"$`, steps.groupShouldContain)
	ctx.Step(`^I save the draft$`, steps.save)
	ctx.Step(`^I export the saved session$`, steps.export)
}

type groupingSteps struct {
	tc    TestContext
	draft draftResponse
}

type member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type draftResponse struct {
	ID          string     `json:"id"`
	Groups      [][]member `json:"groups"`
	RepeatScore int        `json:"repeat_score"`
}

func (s *groupingSteps) decodeDraft() error {
	if s.tc.GetLastStatus() >= http.StatusBadRequest {
		return nil
	}
	if err := json.Unmarshal(s.tc.GetLastBody(), &s.draft); err != nil {
		return fmt.Errorf("decode draft: %w", err)
	}
	s.tc.SetDraftID(s.draft.ID)
	return nil
}

func (s *groupingSteps) generate(size int) error {
	if err := s.tc.POST("/groupings", map[string]any{"group_size": size}); err != nil {
		return err
	}
	return s.decodeDraft()
}

func (s *groupingSteps) generateFor(size int, names string) error {
	var attending []string
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		id := s.tc.GetFamilyID(name)
		if id == "" {
			return fmt.Errorf("unknown family %q", name)
		}
		attending = append(attending, id)
	}
	if err := s.tc.POST("/groupings", map[string]any{"group_size": size, "attending": attending}); err != nil {
		return err
	}
	return s.decodeDraft()
}

func (s *groupingSteps) groupSizesShouldBe(expected string) error {
	sizes := make([]string, len(s.draft.Groups))
	for i, g := range s.draft.Groups {
		sizes[i] = strconv.Itoa(len(g))
	}
	if got := strings.Join(sizes, ","); got != expected {
		return fmt.Errorf("expected group sizes %s, got %s", expected, got)
	}
	return nil
}

func (s *groupingSteps) repeatScoreShouldBe(expected int) error {
	if s.draft.RepeatScore != expected {
		return fmt.Errorf("expected repeat score %d, got %d", expected, s.draft.RepeatScore)
	}
	return nil
}

func (s *groupingSteps) addGroup() error {
	if err := s.tc.POST("/groupings/"+s.tc.GetDraftID()+"/groups", nil); err != nil {
		return err
	}
	return s.decodeDraft()
}

// move takes a 1-based group number as written in the feature files.
func (s *groupingSteps) move(name string, group int) error {
	body := map[string]any{
		"family_id": s.tc.GetFamilyID(name),
		"to_group":  group - 1,
		"index":     0,
	}
	if err := s.tc.POST("/groupings/"+s.tc.GetDraftID()+"/moves", body); err != nil {
		return err
	}
	return s.decodeDraft()
}

func (s *groupingSteps) groupShouldContain(group int, name string) error {
	if group < 1 || group > len(s.draft.Groups) {
		return fmt.Errorf("draft has %d groups", len(s.draft.Groups))
	}
	for _, m := range s.draft.Groups[group-1] {
		if m.Name == name {
			return nil
		}
	}
	return fmt.Errorf("group %d does not contain %q", group, name)
}

func (s *groupingSteps) save() error {
	if err := s.tc.POST("/groupings/"+s.tc.GetDraftID()+"/save", nil); err != nil {
		return err
	}
	if s.tc.GetLastStatus() != http.StatusCreated {
		return nil
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(s.tc.GetLastBody(), &resp); err != nil {
		return err
	}
	s.tc.SetSessionID(resp.SessionID)
	return nil
}

func (s *groupingSteps) export() error {
	return s.tc.GET("/sessions/" + s.tc.GetSessionID() + "/export")
}
