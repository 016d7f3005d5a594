package classify

import (
	"github.com/hal9000y/intent-mcp/internal/preprocess"
)

// EscalatePriority raises p by one step, stopping at high. Urgent is never
// reached by escalation and unknown values are returned unchanged.
func EscalatePriority(p Priority) Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return p
	}
}

// ApplyMetadata overrides model-reported fields with facts found while
// preprocessing. The input is not modified.
func ApplyMetadata(c Classification, m preprocess.Metadata) Classification {
	if m.HasAttachments {
		c.AttachmentsMentioned = true
	}
	if m.UrgentIndicators {
		c.Priority = EscalatePriority(c.Priority)
	}
	return c
}
