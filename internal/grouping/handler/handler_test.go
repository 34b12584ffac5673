package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aroundtable/internal/grouping/handler/mocks"
	"aroundtable/internal/grouping/models"
	"aroundtable/internal/pairing"
	sessionmodels "aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type GroupingHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
}

func TestGroupingHandlerSuite(t *testing.T) {
	suite.Run(t, new(GroupingHandlerSuite))
}

func (s *GroupingHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)

	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

func draftView() *models.DraftView {
	a, b := id.NewFamilyID(), id.NewFamilyID()
	created := time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)
	return &models.DraftView{
		Draft: &models.Draft{
			ID:        id.NewDraftID(),
			GroupSize: 2,
			Groups:    pairing.Groups{{a, b}},
			CreatedAt: created,
			ExpiresAt: created.Add(24 * time.Hour),
		},
		Names:       map[id.FamilyID]string{a: "Ross", b: "Chen"},
		RepeatScore: 1,
	}
}

func (s *GroupingHandlerSuite) TestGenerate() {
	s.Run("created", func() {
		v := draftView()
		attending := []id.FamilyID{v.Draft.Groups[0][0], v.Draft.Groups[0][1]}
		s.service.EXPECT().
			Generate(gomock.Any(), models.GenerateRequest{GroupSize: 2, Attending: attending}).
			Return(v, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/groupings",
			models.GenerateRequest{GroupSize: 2, Attending: attending}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[models.DraftResponse](s.T(), rr)
		s.Equal(v.Draft.ID, resp.ID)
		s.Equal("Chen", resp.Groups[0][1].Name)
		s.Equal(1, resp.RepeatScore)
	})

	s.Run("validation errors map to 400", func() {
		s.service.EXPECT().Generate(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "at least two families must attend"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/groupings",
			models.GenerateRequest{GroupSize: 2}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown fields are rejected", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/groupings",
			`{"group_size": 2, "shuffle": true}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *GroupingHandlerSuite) TestGet() {
	v := draftView()
	s.service.EXPECT().Get(gomock.Any(), v.Draft.ID).Return(v, nil)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/groupings/"+v.Draft.ID.String(), nil))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	s.Equal(v.Draft.ID, testutil.UnmarshalResponse[models.DraftResponse](s.T(), rr).ID)
}

func (s *GroupingHandlerSuite) TestGet_Expired() {
	draftID := id.NewDraftID()
	s.service.EXPECT().Get(gomock.Any(), draftID).Return(nil, dErrors.New(dErrors.CodeNotFound, "grouping has expired"))

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/groupings/"+draftID.String(), nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *GroupingHandlerSuite) TestMove() {
	v := draftView()
	req := models.MoveRequest{FamilyID: v.Draft.Groups[0][1], ToGroup: 0, Index: 0}
	s.service.EXPECT().Move(gomock.Any(), v.Draft.ID, req).Return(v, nil)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/groupings/"+v.Draft.ID.String()+"/moves", req))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *GroupingHandlerSuite) TestMove_Conflict() {
	draftID := id.NewDraftID()
	s.service.EXPECT().Move(gomock.Any(), draftID, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeConflict, "grouping was changed by another request"))

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/groupings/"+draftID.String()+"/moves",
		models.MoveRequest{FamilyID: id.NewFamilyID()}))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *GroupingHandlerSuite) TestAddGroup() {
	v := draftView()
	s.service.EXPECT().AddGroup(gomock.Any(), v.Draft.ID).Return(v, nil)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/groupings/"+v.Draft.ID.String()+"/groups", nil))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
}

func (s *GroupingHandlerSuite) TestSave() {
	draftID := id.NewDraftID()
	session := &sessionmodels.Session{ID: id.NewSessionID(), CreatedAt: time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)}
	s.service.EXPECT().Save(gomock.Any(), draftID).Return(session, nil)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/groupings/"+draftID.String()+"/save", nil))

	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	s.Equal(session.ID, testutil.UnmarshalResponse[models.SavedResponse](s.T(), rr).SessionID)
}

func (s *GroupingHandlerSuite) TestMalformedDraftID() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/groupings/not-an-id/save", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
}
