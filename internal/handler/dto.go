package handler

import (
	"encoding/json"
	"time"

	"github.com/hitoshi/testboard/internal/model"
)

// testCaseRequest は作成・部分更新・一括インポートのリクエスト1件分。
// 省略されたフィールド（nil）と空文字列の指定を区別する。
type testCaseRequest struct {
	Epic           *string   `json:"epic"`
	Application    *string   `json:"application"`
	Module         *string   `json:"module"`
	TestType       *string   `json:"testType"`
	TestScenarioID *string   `json:"testScenarioId"`
	TestScenario   *string   `json:"testScenario"`
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	DetailedSteps  *[]string `json:"detailedSteps"`
	ExpectedResult *string   `json:"expectedResult"`
	ActualBehavior *string   `json:"actualBehavior"`
	Status         *string   `json:"status"`
	Notes          *string   `json:"notes"`
	Evidence       *string   `json:"evidence"`
}

// toInput はリクエストをドメインの入力に変換する。
// ステータスは表示ラベルを内部値に変換する。未知の値はそのまま渡し、サービス層で検証させる。
func (req testCaseRequest) toInput() model.TestCaseInput {
	in := model.TestCaseInput{
		Epic:           req.Epic,
		Application:    req.Application,
		Module:         req.Module,
		TestType:       req.TestType,
		TestScenarioID: req.TestScenarioID,
		TestScenario:   req.TestScenario,
		Title:          req.Title,
		Description:    req.Description,
		DetailedSteps:  req.DetailedSteps,
		ExpectedResult: req.ExpectedResult,
		ActualBehavior: req.ActualBehavior,
		Notes:          req.Notes,
		Evidence:       req.Evidence,
	}
	if req.Status != nil {
		status, err := model.ParseStatusLabel(*req.Status)
		if err != nil {
			status = model.Status(*req.Status)
		}
		in.Status = &status
	}
	return in
}

type testCaseResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	EpicID         string    `json:"epicId"`
	Epic           string    `json:"epic"`
	Application    string    `json:"application"`
	Module         string    `json:"module"`
	TestType       string    `json:"testType"`
	TestScenarioID string    `json:"testScenarioId"`
	TestScenario   string    `json:"testScenario"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DetailedSteps  []string  `json:"detailedSteps"`
	ExpectedResult string    `json:"expectedResult"`
	ActualBehavior string    `json:"actualBehavior"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	Evidence       string    `json:"evidence"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toTestCaseResponse(tc *model.TestCase) testCaseResponse {
	steps := tc.DetailedSteps
	if steps == nil {
		steps = []string{}
	}
	return testCaseResponse{
		ID:             tc.ID,
		UserID:         tc.UserID,
		EpicID:         tc.EpicID,
		Epic:           tc.EpicName,
		Application:    tc.Application,
		Module:         tc.Module,
		TestType:       tc.TestType,
		TestScenarioID: tc.TestScenarioID,
		TestScenario:   tc.TestScenario,
		Title:          tc.Title,
		Description:    tc.Description,
		DetailedSteps:  steps,
		ExpectedResult: tc.ExpectedResult,
		ActualBehavior: tc.ActualBehavior,
		Status:         tc.Status.Label(),
		Notes:          tc.Notes,
		Evidence:       tc.Evidence,
		CreatedAt:      tc.CreatedAt,
		UpdatedAt:      tc.UpdatedAt,
	}
}

func toTestCaseResponses(cases []*model.TestCase) []testCaseResponse {
	out := make([]testCaseResponse, len(cases))
	for i, tc := range cases {
		out[i] = toTestCaseResponse(tc)
	}
	return out
}

// importSummaryResponse は一括インポートの結果。一部失敗しても200で返す。
type importSummaryResponse struct {
	Created int                  `json:"created"`
	Updated int                  `json:"updated"`
	Errors  []string             `json:"errors"`
	Results []importItemResponse `json:"results"`
}

type importItemResponse struct {
	Index          int    `json:"index"`
	TestScenarioID string `json:"testScenarioId"`
	TestCaseID     string `json:"testCaseId,omitempty"`
	Outcome        string `json:"outcome"`
	Error          string `json:"error,omitempty"`
}

func toImportSummaryResponse(s *model.ImportSummary) importSummaryResponse {
	resp := importSummaryResponse{
		Created: s.Created,
		Updated: s.Updated,
		Errors:  s.Errors,
		Results: make([]importItemResponse, len(s.Items)),
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	for i, item := range s.Items {
		resp.Results[i] = importItemResponse{
			Index:          item.Index,
			TestScenarioID: item.TestScenarioID,
			TestCaseID:     item.TestCaseID,
			Outcome:        string(item.Outcome),
			Error:          item.ErrorMessage(),
		}
	}
	return resp
}

type exportRowResponse struct {
	Epic           string `json:"Epic"`
	ID             string `json:"ID"`
	Description    string `json:"Description"`
	ExpectedResult string `json:"Expected Result"`
	Status         string `json:"Status"`
	Notes          string `json:"Notes"`
	Evidence       string `json:"Evidence"`
	Application    string `json:"Application"`
	Module         string `json:"Module"`
	TestType       string `json:"Test Type"`
	ActualBehavior string `json:"Actual Behavior"`
	CreatedDate    string `json:"Created Date"`
}

func toExportRowResponses(rows []model.ExportRow) []exportRowResponse {
	out := make([]exportRowResponse, len(rows))
	for i, r := range rows {
		out[i] = exportRowResponse(r)
	}
	return out
}

type epicResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Passed      int    `json:"passed"`
	Total       int    `json:"total"`
}

func toEpicResponses(epics []*model.Epic) []epicResponse {
	out := make([]epicResponse, len(epics))
	for i, e := range epics {
		out[i] = epicResponse{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Passed:      e.Passed,
			Total:       e.Total,
		}
	}
	return out
}

type commentResponse struct {
	ID         string    `json:"id"`
	TestCaseID string    `json:"testCaseId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toCommentResponse(c *model.Comment) commentResponse {
	return commentResponse{
		ID:         c.ID,
		TestCaseID: c.TestCaseID,
		UserID:     c.UserID,
		UserName:   c.AuthorName,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

type permissionResponse struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId"`
	UserID     string     `json:"userId"`
	UserName   string     `json:"userName"`
	UserEmail  string     `json:"userEmail"`
	Role       string     `json:"role"`
	Status     string     `json:"status"`
	InvitedAt  time.Time  `json:"invitedAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
}

func toPermissionResponse(p *model.Permission) permissionResponse {
	return permissionResponse{
		ID:         p.ID,
		OwnerID:    p.OwnerID,
		UserID:     p.UserID,
		UserName:   p.UserName,
		UserEmail:  p.UserEmail,
		Role:       string(p.Role),
		Status:     string(p.Status),
		InvitedAt:  p.InvitedAt,
		AcceptedAt: p.AcceptedAt,
	}
}

func toPermissionResponses(perms []*model.Permission) []permissionResponse {
	out := make([]permissionResponse, len(perms))
	for i, p := range perms {
		out[i] = toPermissionResponse(p)
	}
	return out
}

type capabilitiesResponse struct {
	Role       string `json:"role"`
	CanView    bool   `json:"canView"`
	CanComment bool   `json:"canComment"`
	CanEdit    bool   `json:"canEdit"`
}

type templateResponse struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Description     string                 `json:"description"`
	Application     string                 `json:"application"`
	Module          string                 `json:"module"`
	TestType        string                 `json:"testType"`
	SampleTestCases []model.SampleTestCase `json:"sampleTestCases"`
}

func toTemplateResponses(templates []*model.Template) []templateResponse {
	out := make([]templateResponse, len(templates))
	for i, t := range templates {
		samples := t.SampleTestCases
		if samples == nil {
			samples = []model.SampleTestCase{}
		}
		out[i] = templateResponse{
			ID:              t.ID,
			Name:            t.Name,
			Description:     t.Description,
			Application:     t.Application,
			Module:          t.Module,
			TestType:        t.TestType,
			SampleTestCases: samples,
		}
	}
	return out
}

// generatedCaseResponse は生成されたテストケース。そのまま一括インポートに渡せる形。
type generatedCaseResponse struct {
	Epic           string   `json:"epic"`
	Application    string   `json:"application"`
	Module         string   `json:"module"`
	TestType       string   `json:"testType"`
	TestScenarioID string   `json:"testScenarioId"`
	TestScenario   string   `json:"testScenario"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	DetailedSteps  []string `json:"detailedSteps"`
	ExpectedResult string   `json:"expectedResult"`
	Status         string   `json:"status"`
}

type generationResponse struct {
	Response  string                  `json:"response"`
	TestCases []generatedCaseResponse `json:"testCases"`
	Import    *importSummaryResponse  `json:"import,omitempty"`
}

func toGenerationResponse(res *model.GenerationResult, summary *model.ImportSummary) generationResponse {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	resp := generationResponse{
		Response:  res.Narrative,
		TestCases: make([]generatedCaseResponse, len(res.TestCases)),
	}
	for i, in := range res.TestCases {
		gc := generatedCaseResponse{
			Epic:           deref(in.Epic),
			Application:    deref(in.Application),
			Module:         deref(in.Module),
			TestType:       deref(in.TestType),
			TestScenarioID: deref(in.TestScenarioID),
			TestScenario:   deref(in.TestScenario),
			Title:          deref(in.Title),
			Description:    deref(in.Description),
			ExpectedResult: deref(in.ExpectedResult),
			DetailedSteps:  []string{},
			Status:         model.StatusNotRun.Label(),
		}
		if in.DetailedSteps != nil {
			gc.DetailedSteps = append(gc.DetailedSteps, (*in.DetailedSteps)...)
		}
		if in.Status != nil {
			gc.Status = in.Status.Label()
		}
		resp.TestCases[i] = gc
	}
	if summary != nil {
		s := toImportSummaryResponse(summary)
		resp.Import = &s
	}
	return resp
}

type auditLogResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Action    string          `json:"action"`
	TableName string          `json:"tableName"`
	RecordID  string          `json:"recordId"`
	OldValues json.RawMessage `json:"oldValues,omitempty"`
	NewValues json.RawMessage `json:"newValues,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func toAuditLogResponses(records []*model.AuditRecord) []auditLogResponse {
	out := make([]auditLogResponse, len(records))
	for i, rec := range records {
		out[i] = auditLogResponse{
			ID:        rec.ID,
			UserID:    rec.UserID,
			Action:    string(rec.Action),
			TableName: rec.Entity,
			RecordID:  rec.EntityID,
			OldValues: rawJSON(rec.OldValues),
			NewValues: rawJSON(rec.NewValues),
			Metadata:  rawJSON(rec.Metadata),
			CreatedAt: rec.CreatedAt,
		}
	}
	return out
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

type userResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsGuest bool   `json:"isGuest"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, IsGuest: u.IsGuest}
}
