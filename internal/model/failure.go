package model

// Failure is one reportable finding from a scan result. Exactly one of the
// two fields is set: ParsingErrors for a parsing-error record, Check for a
// failed control.
type Failure struct {
	ParsingErrors []string
	Check         *CheckFailure
}
