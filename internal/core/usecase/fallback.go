package usecase

import "github.com/kirillkom/denial-appeal-assistant/internal/core/domain"

const (
	FallbackDenialReason   = "The requested procedure is not medically necessary according to clinical guidelines. Conservative treatment should be attempted first."
	FallbackDenialCode     = "CO-50"
	FallbackAppealDeadline = "60 days from date of letter"

	SyntheticDenialReason = "Not Medically Necessary"
	SyntheticDenialCode   = "Unknown"
)

// ApplyDenialFallback returns a copy of a denial letter's fields with the
// placeholder reason, code and deadline set when denial_reason is absent or
// blank. The input is never modified; the bool reports whether the patch ran.
func ApplyDenialFallback(fields domain.Fields) (domain.Fields, bool) {
	out := fields.Clone()
	if out.Has("denial_reason") {
		return out, false
	}
	out["denial_reason"] = FallbackDenialReason
	out["denial_code"] = FallbackDenialCode
	out["appeal_deadline"] = FallbackAppealDeadline
	return out, true
}

// SyntheticDenial is the stand-in denial record used for appeal drafting when
// no denial letter is among the documents.
func SyntheticDenial() domain.Fields {
	return domain.Fields{
		"denial_reason": SyntheticDenialReason,
		"denial_code":   SyntheticDenialCode,
	}
}
