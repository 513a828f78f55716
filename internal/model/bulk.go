package model

import "fmt"

// ImportOutcome は一括インポート1件分の処理結果の種別。
type ImportOutcome string

const (
	ImportCreated ImportOutcome = "created"
	ImportUpdated ImportOutcome = "updated"
	ImportFailed  ImportOutcome = "failed"
)

// ImportItemResult は一括インポート1件分の結果。
// Outcomeがfailedの場合のみErrが設定される。
type ImportItemResult struct {
	Index          int
	TestScenarioID string
	TestCaseID     string
	Outcome        ImportOutcome
	Err            error
}

// ErrorMessage は失敗時の表示用メッセージを返す。
func (r ImportItemResult) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to process test case %s: %s", r.TestScenarioID, r.Err.Error())
}

// ImportSummary は一括インポート全体の結果。
// 一部の失敗はバッチ全体の失敗にならず、Errorsとして返される。
type ImportSummary struct {
	Created int
	Updated int
	Errors  []string
	Items   []ImportItemResult
}

// Add は1件分の結果を集計に加える。
func (s *ImportSummary) Add(r ImportItemResult) {
	s.Items = append(s.Items, r)
	switch r.Outcome {
	case ImportCreated:
		s.Created++
	case ImportUpdated:
		s.Updated++
	case ImportFailed:
		s.Errors = append(s.Errors, r.ErrorMessage())
	}
}
