package domain

type LetterSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// AppealLetter is structured appeal content. Rendering it into a deliverable
// document is the renderer's job.
type AppealLetter struct {
	Subject           string          `json:"subject,omitempty"`
	Salutation        string          `json:"salutation"`
	BodySections      []LetterSection `json:"body_sections"`
	Closing           string          `json:"closing"`
	Citations         []string        `json:"citations"`
	DenialReason      string          `json:"denial_reason"`
	DenialCode        string          `json:"denial_code"`
	SynthesizedDenial bool            `json:"synthesized_denial,omitempty"`
}

type UserDetails struct {
	Name           string `json:"name,omitempty"`
	Address        string `json:"address,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	MemberID       string `json:"member_id,omitempty"`
	InsurerName    string `json:"insurer_name,omitempty"`
	InsurerAddress string `json:"insurer_address,omitempty"`
}

// AppealInput is everything the reasoner needs to draft an appeal.
type AppealInput struct {
	Denial      Fields          `json:"denial"`
	DoctorNote  Fields          `json:"doctor_note"`
	Bill        Fields          `json:"bill"`
	Rules       *InsuranceRules `json:"rules,omitempty"`
	UserDetails UserDetails     `json:"user_details"`
}

type RenderedLetter struct {
	SessionID   string `json:"session_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}
