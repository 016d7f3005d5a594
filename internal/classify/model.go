// Package classify turns email text into a structured real estate intent
// classification using a chat completion model.
package classify

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidClassification indicates model output that does not satisfy
// the classification schema.
var ErrInvalidClassification = errors.New("invalid classification")

type Intent string

const (
	IntentLeaseAbstraction         Intent = "intent_lease_abstraction"
	IntentComparisonLOILease       Intent = "intent_comparison_loi_lease"
	IntentClauseProtect            Intent = "intent_clause_protect"
	IntentCompanyResearch          Intent = "intent_company_research"
	IntentTransactionDateNavigator Intent = "intent_transaction_date_navigator"
	IntentAmendmentAbstraction     Intent = "intent_amendment_abstraction"
	IntentSalesListingsComparison  Intent = "intent_sales_listings_comparison"
	IntentLeaseListingsComparison  Intent = "intent_lease_listings_comparison"
)

// Intents lists every known intent in a stable order.
var Intents = []Intent{
	IntentLeaseAbstraction,
	IntentComparisonLOILease,
	IntentClauseProtect,
	IntentCompanyResearch,
	IntentTransactionDateNavigator,
	IntentAmendmentAbstraction,
	IntentSalesListingsComparison,
	IntentLeaseListingsComparison,
}

func (i Intent) Valid() bool {
	return slices.Contains(Intents, i)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities is ordered from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

type IntentDetails struct {
	Intent     Intent   `json:"intent" jsonschema:"identified intent"`
	Confidence float64  `json:"confidence" jsonschema:"confidence score for this intent, 0 to 1"`
	KeyActions []string `json:"key_actions" jsonschema:"specific actions needed for this intent"`
}

// Classification is the complete classification of one email, possibly
// with several intents.
type Classification struct {
	PrimaryIntent           Intent          `json:"primary_intent" jsonschema:"main intent of the email"`
	SecondaryIntents        []Intent        `json:"secondary_intents" jsonschema:"additional intents identified in the email"`
	IntentDetails           []IntentDetails `json:"intent_details" jsonschema:"details for each identified intent"`
	Priority                Priority        `json:"priority" jsonschema:"one of low, medium, high, urgent"`
	OverallConfidence       float64         `json:"overall_confidence" jsonschema:"overall confidence score, 0 to 1"`
	KeyInformation          []string        `json:"key_information" jsonschema:"key points extracted from the email"`
	EntitiesMentioned       []string        `json:"entities_mentioned" jsonschema:"properties, companies or people mentioned"`
	SuggestedAction         string          `json:"suggested_action" jsonschema:"brief suggestion for handling the email"`
	SpecialistsRequired     []string        `json:"specialists_required" jsonschema:"specialists best suited to handle the request"`
	EstimatedCompletionTime string          `json:"estimated_completion_time" jsonschema:"estimated time needed to complete the request"`
	AttachmentsMentioned    bool            `json:"attachments_mentioned" jsonschema:"whether the email mentions attachments"`
	FollowUpRequired        bool            `json:"follow_up_required" jsonschema:"whether follow-up will likely be needed"`
}

// Validate checks enum membership and confidence ranges.
func (c Classification) Validate() error {
	if !c.PrimaryIntent.Valid() {
		return fmt.Errorf("%w: unknown primary_intent %q", ErrInvalidClassification, c.PrimaryIntent)
	}
	for _, i := range c.SecondaryIntents {
		if !i.Valid() {
			return fmt.Errorf("%w: unknown secondary intent %q", ErrInvalidClassification, i)
		}
	}
	for _, d := range c.IntentDetails {
		if !d.Intent.Valid() {
			return fmt.Errorf("%w: unknown intent_details intent %q", ErrInvalidClassification, d.Intent)
		}
		if !validConfidence(d.Confidence) {
			return fmt.Errorf("%w: confidence %v for %s out of [0,1]", ErrInvalidClassification, d.Confidence, d.Intent)
		}
	}
	if !c.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidClassification, c.Priority)
	}
	if !validConfidence(c.OverallConfidence) {
		return fmt.Errorf("%w: overall_confidence %v out of [0,1]", ErrInvalidClassification, c.OverallConfidence)
	}
	return nil
}

func validConfidence(v float64) bool {
	return v >= 0 && v <= 1
}

// normalize replaces nil lists with empty ones so the JSON form never
// carries null arrays.
func (c Classification) normalize() Classification {
	c.SecondaryIntents = orEmpty(c.SecondaryIntents)
	c.IntentDetails = orEmpty(c.IntentDetails)
	for i := range c.IntentDetails {
		c.IntentDetails[i].KeyActions = orEmpty(c.IntentDetails[i].KeyActions)
	}
	c.KeyInformation = orEmpty(c.KeyInformation)
	c.EntitiesMentioned = orEmpty(c.EntitiesMentioned)
	c.SpecialistsRequired = orEmpty(c.SpecialistsRequired)
	return c
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
