// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Status はテストケースの実行結果を表す。値はDBに保存される内部表現。
type Status string

const (
	// StatusNotRun は未実行を表す。
	StatusNotRun Status = "NOT_RUN"
	// StatusPassed は成功を表す。
	StatusPassed Status = "PASSED"
	// StatusFailed は失敗を表す。
	StatusFailed Status = "FAILED"
)

// 表示ラベルと内部値の対応表。"Not Run" の空白を含めて変更しないこと。
var statusLabels = map[Status]string{
	StatusNotRun: "Not Run",
	StatusPassed: "Passed",
	StatusFailed: "Failed",
}

// Label は表示用ラベルを返す。未知の値は "Not Run" として扱う。
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[StatusNotRun]
}

// Valid は定義済みのステータスかどうかを返す。
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// ParseStatusLabel は表示ラベル（"Not Run", "Passed", "Failed"）を内部値に変換する。
// 内部値そのもの（"PASSED" 等）も受け付ける。
func ParseStatusLabel(label string) (Status, error) {
	for status, l := range statusLabels {
		if label == l || label == string(status) {
			return status, nil
		}
	}
	return "", NewInvalidStatusError(label)
}

// ParseStatusFilter は一覧APIのstatusクエリを解釈する。
// 空文字列と "all" はフィルタなし（nil）を返す。
// "passed" / "failed" / "not-run" のほか表示ラベルも受け付ける。
func ParseStatusFilter(v string) (*Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all":
		return nil, nil
	case "passed":
		s := StatusPassed
		return &s, nil
	case "failed":
		s := StatusFailed
		return &s, nil
	case "not-run", "not run", "not_run":
		s := StatusNotRun
		return &s, nil
	}
	return nil, NewInvalidFilterError(v)
}

// Lifecycle はテストケースの状態（Active または Deleted）を表すタグ付き状態。
type Lifecycle interface {
	lifecycle()
}

// Active は有効なテストケースの状態。
type Active struct{}

// Deleted はソフトデリート済み（墓標）の状態。削除時刻と削除者を保持する。
type Deleted struct {
	At time.Time
	By string
}

func (Active) lifecycle()  {}
func (Deleted) lifecycle() {}

// TestCase は手動QAのテストケースを表す。
// UserIDは作成後に変更されない（所有権は移転しない）。
type TestCase struct {
	ID             string
	UserID         string
	EpicID         string
	EpicName       string
	Application    string
	Module         string
	TestType       string
	TestScenarioID string
	TestScenario   string
	Title          string
	Description    string
	DetailedSteps  []string
	ExpectedResult string
	ActualBehavior string
	Status         Status
	Notes          string
	Evidence       string
	Lifecycle      Lifecycle
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsDeleted はソフトデリート済みかどうかを返す。
func (tc *TestCase) IsDeleted() bool {
	_, ok := tc.Lifecycle.(Deleted)
	return ok
}

// Tombstone は削除済みの場合に削除情報を返す。
func (tc *TestCase) Tombstone() (Deleted, bool) {
	d, ok := tc.Lifecycle.(Deleted)
	return d, ok
}

// Apply は指定されたフィールドのみを上書きする。nilのフィールドは既存値を維持する。
// 空文字列の指定は有効な上書きとして扱う。エピック名の解決は呼び出し側で行う。
// 削除済みのテストケースには適用できない。
func (tc *TestCase) Apply(in TestCaseInput, now time.Time) error {
	if tc.IsDeleted() {
		return NewTombstonedError(tc.ID)
	}

	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&tc.Application, in.Application)
	assign(&tc.Module, in.Module)
	assign(&tc.TestType, in.TestType)
	assign(&tc.TestScenarioID, in.TestScenarioID)
	assign(&tc.TestScenario, in.TestScenario)
	assign(&tc.Title, in.Title)
	assign(&tc.Description, in.Description)
	assign(&tc.ExpectedResult, in.ExpectedResult)
	assign(&tc.ActualBehavior, in.ActualBehavior)
	assign(&tc.Notes, in.Notes)
	assign(&tc.Evidence, in.Evidence)

	if in.DetailedSteps != nil {
		tc.DetailedSteps = append([]string(nil), (*in.DetailedSteps)...)
	}
	if in.Status != nil {
		tc.Status = *in.Status
	}

	tc.UpdatedAt = now
	return nil
}

// MarkDeleted はテストケースを墓標状態に遷移させる。
// フィールド値はすべて保持される。二重削除はエラーになる。
func (tc *TestCase) MarkDeleted(by string, at time.Time) error {
	if tc.IsDeleted() {
		return NewTombstonedError(tc.ID)
	}
	tc.Lifecycle = Deleted{At: at, By: by}
	tc.UpdatedAt = at
	return nil
}

// Clone はスナップショット用のコピーを返す。
func (tc *TestCase) Clone() *TestCase {
	c := *tc
	c.DetailedSteps = append([]string(nil), tc.DetailedSteps...)
	return &c
}

// TestCaseInput は作成・部分更新・一括インポートの入力を表す。
// nilは「未指定」を意味し、空文字列の指定とは区別する。
type TestCaseInput struct {
	Epic           *string
	Application    *string
	Module         *string
	TestType       *string
	TestScenarioID *string
	TestScenario   *string
	Title          *string
	Description    *string
	DetailedSteps  *[]string
	ExpectedResult *string
	ActualBehavior *string
	Status         *Status
	Notes          *string
	Evidence       *string
}

// MissingForCreate は新規作成に必要なフィールドのうち未指定または空のものを返す。
func (in TestCaseInput) MissingForCreate() []string {
	var missing []string
	if isBlank(in.Title) {
		missing = append(missing, "title")
	}
	if isBlank(in.Description) {
		missing = append(missing, "description")
	}
	if isBlank(in.ExpectedResult) {
		missing = append(missing, "expectedResult")
	}
	return missing
}

// ScenarioID はテストシナリオIDを返す。未指定の場合は空文字列。
func (in TestCaseInput) ScenarioID() string {
	if in.TestScenarioID == nil {
		return ""
	}
	return strings.TrimSpace(*in.TestScenarioID)
}

// EpicName はエピック名を返す。未指定または空白の場合は空文字列。
func (in TestCaseInput) EpicName() string {
	if in.Epic == nil {
		return ""
	}
	return strings.TrimSpace(*in.Epic)
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// TestCaseFilter はテストケース一覧の絞り込み条件。すべてAND条件で適用する。
type TestCaseFilter struct {
	Status *Status // nilは全ステータス
	EpicID string  // 空文字列は全エピック
	Search string  // title/description/idの部分一致（大文字小文字を区別しない）
}

// ExportRow はテストケースのエクスポート行を表す。
type ExportRow struct {
	Epic           string
	ID             string
	Description    string
	ExpectedResult string
	Status         string
	Notes          string
	Evidence       string
	Application    string
	Module         string
	TestType       string
	ActualBehavior string
	CreatedDate    string
}
