package model

// Template はテストケース生成用のテンプレートを表す。
type Template struct {
	ID              string
	Name            string
	Description     string
	Application     string
	Module          string
	TestType        string
	SampleTestCases []SampleTestCase
}

// SampleTestCase はテンプレートに含まれるサンプルテストケース。
type SampleTestCase struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Steps          []string `json:"steps"`
	ExpectedResult string   `json:"expectedResult"`
}

// GenerationRequest はテストケース生成の入力。
type GenerationRequest struct {
	Prompt      string
	TemplateID  string
	Application string
	Module      string
}

// GenerationResult は生成結果。TestCasesは一括インポートにそのまま渡せる。
type GenerationResult struct {
	Narrative string
	TestCases []TestCaseInput
}
