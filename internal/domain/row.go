package domain

// Row-level error codes surfaced in the downloadable report.
const (
	ErrCodeMissingSKU           = "MISSING_SKU"
	ErrCodeFamilyUnknown        = "FAMILY_UNKNOWN"
	ErrCodeAttributeUnknown     = "ATTRIBUTE_UNKNOWN"
	ErrCodeAttributeNotInFamily = "ATTRIBUTE_NOT_IN_FAMILY"
	ErrCodeLocaleUnknown        = "LOCALE_UNKNOWN"
	ErrCodeChannelUnknown       = "CHANNEL_UNKNOWN"
	ErrCodeCategoryUnknown      = "CATEGORY_UNKNOWN"
	ErrCodeDuplicateSKU         = "DUPLICATE_SKU"
	ErrCodeApplyFailed          = "APPLY_FAILED"
	ErrCodeTaskFailed           = "TASK_FAILED"
)

// AttributeKey identifies one attribute column parsed from a spreadsheet
// header of the form code[-locale][-channel]. Empty locale/channel mean
// "not scoped along that dimension".
type AttributeKey struct {
	Code    string
	Locale  string
	Channel string
}

// CanonicalRow is one input record mapped onto the canonical field schema.
// Fields always contains every field id of the active schema version; a
// missing or blank source value is a nil entry. Attributes carries the raw
// values of unmapped columns whose header matched the attribute pattern.
type CanonicalRow struct {
	Number     int
	Fields     map[string]*string
	Attributes map[AttributeKey]string
}

// SKU returns the row's sku field, or empty when unset.
func (r CanonicalRow) SKU() string {
	if v := r.Fields[FieldSKU]; v != nil {
		return *v
	}
	return ""
}

// Field returns the trimmed value of a canonical field, or empty when unset.
func (r CanonicalRow) Field(id string) string {
	if v := r.Fields[id]; v != nil {
		return *v
	}
	return ""
}

// RowOutcomeKind tags the result of processing one row.
type RowOutcomeKind string

const (
	RowApplied RowOutcomeKind = "applied"
	RowSkipped RowOutcomeKind = "skipped"
	RowFailed  RowOutcomeKind = "failed"
)

// RowError is one structured row-level failure.
type RowError struct {
	RowNumber int    `json:"row"`
	SKU       string `json:"sku"`
	Field     string `json:"field"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// RowOutcome is the tagged result of running one row through the pipeline.
// Failed outcomes carry one error per violated rule.
type RowOutcome struct {
	Kind       RowOutcomeKind
	SKU        string
	SkipReason string
	Errors     []RowError
}

// AppliedOutcome reports a committed row.
func AppliedOutcome(sku string) RowOutcome {
	return RowOutcome{Kind: RowApplied, SKU: sku}
}

// SkippedOutcome reports a row intentionally left unapplied.
func SkippedOutcome(sku, reason string) RowOutcome {
	return RowOutcome{Kind: RowSkipped, SKU: sku, SkipReason: reason}
}

// FailedOutcome reports a row rejected with one or more errors.
func FailedOutcome(sku string, errs ...RowError) RowOutcome {
	return RowOutcome{Kind: RowFailed, SKU: sku, Errors: errs}
}
